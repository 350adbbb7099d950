package model

// Topic is a policy area bills are classified into
type Topic struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	Keywords    []string
}

// CategoryMeta represents an official subject category (efnisflokkur)
type CategoryMeta struct {
	SourceID    int
	Name        string
	Description string
	Group       string
}

// TopicSeed is a default topic with its keyword list
type TopicSeed struct {
	Name        string
	Description string
	Keywords    []string
}

// DefaultTopics are the policy areas used by the keyword classifier
var DefaultTopics = []TopicSeed{
	{
		Name:        "Heilbrigðismál",
		Description: "Heilbrigðisþjónusta, sjúkrahús og lýðheilsa",
		Keywords:    []string{"heilbrigðis", "sjúkra", "heilsu", "lækn", "sjúkrahús", "heilbrigðisþjónust", "lyfja", "meðferð", "hjúkrun", "bráðamóttök"},
	},
	{
		Name:        "Menntamál",
		Description: "Skólar, menntun og rannsóknir",
		Keywords:    []string{"mennta", "skóla", "kennslu", "náms", "háskóla", "framhaldsskól", "grunnskól", "fræðslu", "nemend", "kennara"},
	},
	{
		Name:        "Umhverfismál",
		Description: "Umhverfi, loftslag og náttúruvernd",
		Keywords:    []string{"umhverfis", "loftslags", "náttúru", "mengunar", "orkumál", "sjálfbær", "endurvinnslu", "græn", "vistkerfi", "landgræðslu", "skógrækt"},
	},
	{
		Name:        "Efnahagsmál",
		Description: "Fjármál, skattar og efnahagur",
		Keywords:    []string{"fjármála", "efnahags", "skatta", "viðskipta", "banka", "fjárlög", "verðbréf", "gjald", "tekju", "kostnað", "greiðslu"},
	},
	{
		Name:        "Dómsmál",
		Description: "Réttarkerfi, löggæsla og réttindi",
		Keywords:    []string{"dóm", "rétt", "laga", "saka", "réttindi", "dómstól", "löggjöf", "refsing", "fangelsi", "lögregl"},
	},
}
