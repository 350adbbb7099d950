package service

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

type speechXML struct {
	Session string `xml:"löggjafarþing"`
	Date    string `xml:"dagur"`
	Start   string `xml:"ræðahófst"`
	End     string `xml:"ræðulauk"`
	Type    string `xml:"tegundræðu"`
	Bill    struct {
		Number string `xml:"málsnúmer,attr"`
		Elem   string `xml:"málsnúmer"`
		Title  string `xml:"málsheiti"`
	} `xml:"mál"`
	Links struct {
		Audio string `xml:"hljóð"`
		XML   string `xml:"xml"`
		HTML  string `xml:"html"`
	} `xml:"slóðir"`
}

// ParseSpeeches extracts the speeches of a legislator. Speeches without a
// start time cannot be keyed and are skipped.
func (p *Parser) ParseSpeeches(body []byte) (*Batch[model.SpeechMeta], error) {
	batch := &Batch[model.SpeechMeta]{}
	err := eachElement("speeches", body, "ræða", func(d *xml.Decoder, se xml.StartElement) error {
		var x speechXML
		if err := d.DecodeElement(&x, &se); err != nil {
			return err
		}
		meta := model.SpeechMeta{
			Session:      atoi(x.Session),
			Date:         ParseDate(x.Date),
			Start:        ParseTimestamp(x.Start),
			End:          ParseTimestamp(x.End),
			SpeechType:   CleanText(x.Type),
			BillSourceID: atoi(firstNonEmpty(x.Bill.Number, x.Bill.Elem)),
			BillTitle:    CleanText(x.Bill.Title),
			AudioURL:     CleanText(x.Links.Audio),
			XMLURL:       CleanText(x.Links.XML),
			HTMLURL:      CleanText(x.Links.HTML),
		}
		if meta.Start == nil {
			batch.skip(skipRecord("speeches", x.Start, "missing start time"))
			return nil
		}
		if meta.Date == nil {
			day := meta.Start.Truncate(24 * time.Hour)
			meta.Date = &day
		}
		batch.Records = append(batch.Records, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

type categoryXML struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"heiti"`
	Description string `xml:"lýsing"`
}

type categoryGroupXML struct {
	ID         string        `xml:"id,attr"`
	Name       string        `xml:"heiti"`
	Categories []categoryXML `xml:"efnisflokkur"`
}

// ParseCategories extracts the official subject categories. Categories are
// normally nested in groups (yfirflokkur); a flat list is accepted too.
func (p *Parser) ParseCategories(body []byte) (*Batch[model.CategoryMeta], error) {
	batch := &Batch[model.CategoryMeta]{}
	add := func(x categoryXML, group string) {
		meta := model.CategoryMeta{
			SourceID:    atoi(x.ID),
			Name:        CleanText(x.Name),
			Description: p.stripHTML(x.Description),
			Group:       group,
		}
		switch {
		case meta.SourceID == 0:
			batch.skip(skipRecord("categories", x.Name, "missing category id"))
		case meta.Name == "":
			batch.skip(skipRecord("categories", strconv.Itoa(meta.SourceID), "missing category name"))
		default:
			batch.Records = append(batch.Records, meta)
		}
	}

	groups := 0
	err := eachElement("categories", body, "yfirflokkur", func(d *xml.Decoder, se xml.StartElement) error {
		var g categoryGroupXML
		if err := d.DecodeElement(&g, &se); err != nil {
			return err
		}
		groups++
		for _, c := range g.Categories {
			add(c, CleanText(g.Name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if groups > 0 {
		return batch, nil
	}

	err = eachElement("categories", body, "efnisflokkur", func(d *xml.Decoder, se xml.StartElement) error {
		var c categoryXML
		if err := d.DecodeElement(&c, &se); err != nil {
			return err
		}
		add(c, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
