package service

import (
	"encoding/xml"
	"sort"
	"strconv"

	"github.com/jjenkins/althingi/internal/model"
)

type billRefXML struct {
	Number     string `xml:"málsnúmer,attr"`
	Session    string `xml:"þingnúmer,attr"`
	NumberElem string `xml:"málsnúmer"`
	Title      string `xml:"málsheiti"`
	HTML       string `xml:"html"`
	Links      struct {
		HTML string `xml:"html"`
	} `xml:"slóð"`
}

func (x billRefXML) number() int {
	if n := atoi(firstNonEmpty(x.Number, x.NumberElem)); n > 0 {
		return n
	}
	for _, link := range []string{x.HTML, x.Links.HTML} {
		if m := mnrRe.FindStringSubmatch(link); m != nil {
			return atoi(m[1])
		}
	}
	return 0
}

// ParseBillList extracts bill references from a bill list. The same shape
// is used by the per-category bill lists.
func (p *Parser) ParseBillList(body []byte) (*Batch[model.BillRef], error) {
	batch := &Batch[model.BillRef]{}
	err := eachElement("bills", body, "mál", func(d *xml.Decoder, se xml.StartElement) error {
		var x billRefXML
		if err := d.DecodeElement(&x, &se); err != nil {
			return err
		}
		ref := model.BillRef{
			SourceID: x.number(),
			Session:  atoi(x.Session),
			Title:    CleanText(x.Title),
		}
		if ref.SourceID == 0 {
			batch.skip(skipRecord("bills", x.Title, "missing bill number"))
			return nil
		}
		batch.Records = append(batch.Records, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

type billDetailXML struct {
	Bill struct {
		billRefXML
		Summary string `xml:"efnisgreining"`
		Type    struct {
			Name string `xml:"heiti"`
			Text string `xml:",chardata"`
		} `xml:"málstegund"`
		Status string `xml:"staðamáls"`
	} `xml:"mál"`
	Title     string `xml:"málsheiti"`
	Status    string `xml:"staðamáls"`
	Documents []struct {
		Number      string `xml:"skjalsnúmer,attr"`
		Distributed string `xml:"útbýting"`
	} `xml:"þingskjöl>þingskjal"`
	Votings []struct {
		ID    string `xml:"atkvæðagreiðslunúmer,attr"`
		Time  string `xml:"tími"`
		Links struct {
			XML string `xml:"xml"`
		} `xml:"slóðir"`
	} `xml:"atkvæðagreiðslur>atkvæðagreiðsla"`
}

// ParseBill extracts a bill detail document. session and number identify
// the requested bill and are used when the document omits them. The title
// may be empty; callers fall back to the list entry.
func (p *Parser) ParseBill(body []byte, session, number int) (*model.BillMeta, error) {
	var x billDetailXML
	found, err := firstElement("bill", body, "þingmál", &x)
	if err != nil {
		return nil, err
	}
	record := strconv.Itoa(number)
	if !found {
		return nil, skipRecord("bill", record, "no þingmál element")
	}

	meta := &model.BillMeta{
		SourceID:   x.Bill.number(),
		Session:    atoi(x.Bill.Session),
		Title:      firstNonEmpty(x.Bill.Title, x.Title),
		BillType:   firstNonEmpty(x.Bill.Type.Name, x.Bill.Type.Text),
		StatusText: firstNonEmpty(x.Bill.Status, x.Status),
		Summary:    CleanText(x.Bill.Summary),
	}
	if meta.SourceID == 0 {
		meta.SourceID = number
	}
	if meta.Session == 0 {
		meta.Session = session
	}

	for _, doc := range x.Documents {
		if n := atoi(doc.Number); n > 0 {
			meta.DocumentNumbers = append(meta.DocumentNumbers, n)
		}
		if meta.IntroducedDate == nil {
			meta.IntroducedDate = ParseDate(doc.Distributed)
		}
	}

	for _, v := range x.Votings {
		id := atoi(v.ID)
		if id == 0 {
			if m := numerRe.FindStringSubmatch(v.Links.XML); m != nil {
				id = atoi(m[1])
			}
		}
		if id > 0 {
			meta.VotingIDs = append(meta.VotingIDs, id)
		}
	}

	return meta, nil
}

type sponsorXML struct {
	ID    string `xml:"id,attr"`
	Order string `xml:"röð,attr"`
	Name  string `xml:"nafn"`
}

// ParseSponsors extracts the sponsors of a bill document ordered by their
// listed position. The first entry is the primary sponsor.
func (p *Parser) ParseSponsors(body []byte) ([]model.SponsorMeta, error) {
	var sponsors []model.SponsorMeta
	err := eachElement("document", body, "flutningsmaður", func(d *xml.Decoder, se xml.StartElement) error {
		var x sponsorXML
		if err := d.DecodeElement(&x, &se); err != nil {
			return err
		}
		id := atoi(x.ID)
		if id == 0 {
			return nil
		}
		order := atoi(x.Order)
		if order == 0 {
			order = len(sponsors) + 1
		}
		sponsors = append(sponsors, model.SponsorMeta{
			SourceID: id,
			Name:     CleanText(x.Name),
			Order:    order,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sponsors, func(i, j int) bool {
		return sponsors[i].Order < sponsors[j].Order
	})
	return sponsors, nil
}

type ballotXML struct {
	ID     string `xml:"id,attr"`
	Name   string `xml:"nafn"`
	Ballot string `xml:"atkvæði"`
}

type votingXML struct {
	ID      string `xml:"atkvæðagreiðslunúmer,attr"`
	Bill    string `xml:"málsnúmer,attr"`
	Session string `xml:"þingnúmer,attr"`
	Time    string `xml:"tími"`
	Result  struct {
		Text  string `xml:",chardata"`
		Inner string `xml:"niðurstaða"`
	} `xml:"niðurstaða"`
	Ballots []ballotXML `xml:"atkvæðaskrá>þingmaður"`
}

// ParseVoting extracts a voting event with its ballots
func (p *Parser) ParseVoting(body []byte, votingID int) (*model.VotingMeta, error) {
	var x votingXML
	found, err := firstElement("voting", body, "atkvæðagreiðsla", &x)
	if err != nil {
		return nil, err
	}
	record := strconv.Itoa(votingID)
	if !found {
		return nil, skipRecord("voting", record, "no atkvæðagreiðsla element")
	}

	meta := &model.VotingMeta{
		VotingID:     atoi(x.ID),
		BillSourceID: atoi(x.Bill),
		Session:      atoi(x.Session),
		Time:         ParseTimestamp(x.Time),
		Result:       firstNonEmpty(x.Result.Inner, x.Result.Text),
	}
	if meta.VotingID == 0 {
		meta.VotingID = votingID
	}

	ballots := x.Ballots
	if len(ballots) == 0 {
		err := eachElement("voting", body, "þingmaður", func(d *xml.Decoder, se xml.StartElement) error {
			var b ballotXML
			if err := d.DecodeElement(&b, &se); err != nil {
				return err
			}
			ballots = append(ballots, b)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, b := range ballots {
		id := atoi(b.ID)
		if id == 0 {
			continue
		}
		raw := CleanText(b.Ballot)
		meta.Ballots = append(meta.Ballots, model.BallotMeta{
			LegislatorSourceID: id,
			Name:               CleanText(b.Name),
			Raw:                raw,
			Choice:             model.MapVoteChoice(raw),
		})
	}

	return meta, nil
}
