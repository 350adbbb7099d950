package service

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jjenkins/althingi/internal/model"
)

var (
	emailFallbackRe = regexp.MustCompile(`([\w.]+)\s+althingi\.is`)
	facebookRe      = regexp.MustCompile(`https?://(?:www\.)?facebook\.com/[^\s"<]+`)
	twitterRe       = regexp.MustCompile(`https?://(?:www\.)?(?:twitter|x)\.com/[^\s"<]+`)
)

type sessionXML struct {
	Number    string `xml:"númer,attr"`
	AltNumber string `xml:"nr,attr"`
	Start     string `xml:"þingsetning"`
	End       string `xml:"þinglok"`
	Period    struct {
		Start string `xml:"þingsetning"`
		End   string `xml:"þinglok"`
	} `xml:"tímabil"`
}

func (s sessionXML) meta() model.SessionMeta {
	return model.SessionMeta{
		Number:    atoi(firstNonEmpty(s.Number, s.AltNumber)),
		StartDate: ParseDate(firstNonEmpty(s.Start, s.Period.Start)),
		EndDate:   ParseDate(firstNonEmpty(s.End, s.Period.End)),
	}
}

// ParseSessions extracts every session of the sessions feed
func (p *Parser) ParseSessions(body []byte) (*Batch[model.SessionMeta], error) {
	batch := &Batch[model.SessionMeta]{}
	err := eachElement("sessions", body, "þing", func(d *xml.Decoder, se xml.StartElement) error {
		var s sessionXML
		if err := d.DecodeElement(&s, &se); err != nil {
			return err
		}
		meta := s.meta()
		if meta.Number == 0 {
			batch.skip(skipRecord("sessions", "", "missing session number"))
			return nil
		}
		batch.Records = append(batch.Records, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ParseCurrentSession extracts the active session number
func (p *Parser) ParseCurrentSession(body []byte) (*model.SessionMeta, error) {
	var s sessionXML
	found, err := firstElement("current session", body, "þing", &s)
	if err != nil {
		return nil, err
	}
	meta := s.meta()
	if !found || meta.Number == 0 {
		return nil, skipRecord("current session", "", "missing session number")
	}
	return &meta, nil
}

type partyXML struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"heiti"`
	Abbreviations struct {
		Short string `xml:"stuttskammstöfun"`
		Long  string `xml:"löngskammstöfun"`
	} `xml:"skammstafanir"`
	Period struct {
		First string `xml:"fyrstaþing"`
		Last  string `xml:"síðastaþing"`
	} `xml:"tímabil"`
}

// ParseParties extracts the parties of a session. Placeholder entries with
// no name or the abbreviation "-" are skipped.
func (p *Parser) ParseParties(body []byte) (*Batch[model.PartyMeta], error) {
	batch := &Batch[model.PartyMeta]{}
	err := eachElement("parties", body, "þingflokkur", func(d *xml.Decoder, se xml.StartElement) error {
		var x partyXML
		if err := d.DecodeElement(&x, &se); err != nil {
			return err
		}
		meta := model.PartyMeta{
			SourceID:         atoi(x.ID),
			Name:             CleanText(x.Name),
			Abbreviation:     CleanText(x.Abbreviations.Short),
			LongAbbreviation: CleanText(x.Abbreviations.Long),
			FirstSession:     atoi(x.Period.First),
			LastSession:      atoi(x.Period.Last),
		}
		switch {
		case meta.SourceID == 0:
			batch.skip(skipRecord("parties", x.ID, "missing party id"))
		case meta.Name == "":
			batch.skip(skipRecord("parties", x.ID, "missing party name"))
		case meta.Abbreviation == "-":
			batch.skip(skipRecord("parties", x.ID, "placeholder party"))
		default:
			batch.Records = append(batch.Records, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

type legislatorXML struct {
	ID        string `xml:"id,attr"`
	Name      string `xml:"nafn"`
	BirthDate string `xml:"fæðingardagur"`
	Email     struct {
		Name   string `xml:"nafn"`
		Domain string `xml:"lén"`
	} `xml:"netfang"`
	Website string `xml:"vefsíða"`
}

// ParseLegislators extracts the members listed for a session
func (p *Parser) ParseLegislators(body []byte) (*Batch[model.LegislatorMeta], error) {
	batch := &Batch[model.LegislatorMeta]{}
	err := eachElement("legislators", body, "þingmaður", func(d *xml.Decoder, se xml.StartElement) error {
		var x legislatorXML
		if err := d.DecodeElement(&x, &se); err != nil {
			return err
		}
		meta := model.LegislatorMeta{
			SourceID:  atoi(x.ID),
			Name:      CleanText(x.Name),
			BirthDate: ParseDate(x.BirthDate),
		}
		switch {
		case meta.SourceID == 0:
			batch.skip(skipRecord("legislators", x.ID, "missing legislator id"))
		case meta.Name == "":
			batch.skip(skipRecord("legislators", x.ID, "missing legislator name"))
		default:
			batch.Records = append(batch.Records, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ParseLegislatorDetail fills contact details from the legislator detail
// document into meta. Fields already set are kept when the document has
// no value for them.
func (p *Parser) ParseLegislatorDetail(body []byte, meta *model.LegislatorMeta) error {
	var x legislatorXML
	found, err := firstElement("legislator", body, "þingmaður", &x)
	if err != nil {
		return err
	}
	if !found {
		return skipRecord("legislator", strconv.Itoa(meta.SourceID), "no þingmaður element")
	}

	if name := CleanText(x.Name); name != "" {
		meta.Name = name
	}
	if bd := ParseDate(x.BirthDate); bd != nil {
		meta.BirthDate = bd
	}
	if site := CleanText(x.Website); site != "" {
		meta.Website = site
	}

	text, err := allText("legislator", body)
	if err != nil {
		return err
	}

	user, domain := CleanText(x.Email.Name), CleanText(x.Email.Domain)
	switch {
	case user != "" && domain != "":
		meta.Email = user + "@" + domain
	case user != "":
		meta.Email = user + "@althingi.is"
	default:
		if m := emailFallbackRe.FindStringSubmatch(text); m != nil {
			meta.Email = m[1] + "@althingi.is"
		}
	}

	if m := facebookRe.FindString(text); m != "" {
		meta.FacebookURL = strings.TrimRight(m, ".,)")
	}
	if m := twitterRe.FindString(text); m != "" {
		meta.TwitterURL = strings.TrimRight(m, ".,)")
	}

	return nil
}

// ParseBiography returns the plain text of a biography document with
// markup and URLs removed
func (p *Parser) ParseBiography(body []byte) (string, error) {
	text, err := allText("biography", body)
	if err != nil {
		return "", err
	}
	text = p.stripHTML(text)
	text = urlRe.ReplaceAllString(text, "")
	return CleanText(text), nil
}

type seatXML struct {
	Session string `xml:"þing"`
	Kind    string `xml:"tegund"`
	Party   struct {
		ID   string `xml:"id,attr"`
		Name string `xml:",chardata"`
	} `xml:"þingflokkur"`
	Constituency struct {
		Name string `xml:",chardata"`
	} `xml:"kjördæmi"`
	Period struct {
		In  string `xml:"inn"`
		Out string `xml:"út"`
	} `xml:"tímabil"`
}

// ParseSeats extracts the seat history of a legislator
func (p *Parser) ParseSeats(body []byte) ([]model.SeatMeta, error) {
	var seats []model.SeatMeta
	err := eachElement("seats", body, "þingseta", func(d *xml.Decoder, se xml.StartElement) error {
		var x seatXML
		if err := d.DecodeElement(&x, &se); err != nil {
			return err
		}
		seats = append(seats, model.SeatMeta{
			Session:       atoi(x.Session),
			Kind:          CleanText(x.Kind),
			PartySourceID: atoi(x.Party.ID),
			PartyName:     CleanText(x.Party.Name),
			Constituency:  CleanText(x.Constituency.Name),
			In:            ParseDate(x.Period.In),
			Out:           ParseDate(x.Period.Out),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// interestTags maps each form question to its field in InterestFields
var interestTags = map[string]func(f *model.InterestFields) *string{
	"launuðstjórnarseta":       func(f *model.InterestFields) *string { return &f.BoardPositions },
	"launaðstarf":              func(f *model.InterestFields) *string { return &f.PaidWork },
	"tekjumyndandistarfsemi":   func(f *model.InterestFields) *string { return &f.BusinessActivities },
	"fjárhagslegurstuðningur":  func(f *model.InterestFields) *string { return &f.FinancialSupport },
	"gjafir":                   func(f *model.InterestFields) *string { return &f.Gifts },
	"ferðir":                   func(f *model.InterestFields) *string { return &f.Trips },
	"eftirgjöfskulda":          func(f *model.InterestFields) *string { return &f.DebtForgiveness },
	"fasteignir":               func(f *model.InterestFields) *string { return &f.RealEstate },
	"eignir":                   func(f *model.InterestFields) *string { return &f.CompanyOwnership },
	"fyrrverandivinnuveitandi": func(f *model.InterestFields) *string { return &f.FormerEmployerAgreements },
	"framtíðarvinnuveitandi":   func(f *model.InterestFields) *string { return &f.FutureEmployerAgreements },
	"trúnaðarstörf":            func(f *model.InterestFields) *string { return &f.OtherPositions },
}

var emptyAnswers = map[string]bool{
	"engin":  true,
	"engar":  true,
	"ekkert": true,
	"none":   true,
}

// ParseInterests extracts the twelve answers of a financial interest
// registration. Each answer is the text of the svar element under the
// question element; "Engin" style answers are treated as empty.
func (p *Parser) ParseInterests(body []byte, legislatorSourceID int) (*model.InterestMeta, error) {
	meta := &model.InterestMeta{LegislatorSourceID: legislatorSourceID}
	raw := make(map[string]*strings.Builder)

	d := newDecoder(body)
	var stack []string
	sawRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Doc: "interests", Record: strconv.Itoa(legislatorSourceID), Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			tag := answerTag(stack)
			if tag == "" {
				continue
			}
			b, ok := raw[tag]
			if !ok {
				b = &strings.Builder{}
				raw[tag] = b
			}
			b.Write(t)
		}
	}
	if !sawRoot {
		return nil, &ParseError{Doc: "interests", Record: strconv.Itoa(legislatorSourceID), Err: errEmptyDocument}
	}

	for tag, b := range raw {
		text := p.stripHTML(b.String())
		if emptyAnswers[strings.ToLower(strings.Trim(text, ". "))] {
			text = ""
		}
		*interestTags[tag](&meta.InterestFields) = text
	}
	return meta, nil
}

// answerTag returns the question tag when the text sits inside a svar
// element directly under a known question element
func answerTag(stack []string) string {
	for i := len(stack) - 1; i >= 1; i-- {
		if stack[i] != "svar" {
			continue
		}
		if _, ok := interestTags[stack[i-1]]; ok {
			return stack[i-1]
		}
	}
	return ""
}
