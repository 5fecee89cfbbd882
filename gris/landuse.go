package gris

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"baikuk-automation/models"
)

// ErrNoLandUse is returned when the document has no land-use image.
var ErrNoLandUse = errors.New("gris: land-use image not in document")

// ParseLandUse reads the land-use image and the label/value rows around it.
// Relative image URLs are resolved against base.
func ParseLandUse(html, base string) (models.LandUse, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.LandUse{}, err
	}

	img := doc.Find("#totUseLandMltmImg").First()
	if img.Length() == 0 {
		return models.LandUse{}, ErrNoLandUse
	}

	lu := models.LandUse{Fields: make(map[string]string)}
	if src, ok := img.Attr("src"); ok {
		lu.ImageURL = resolve(base, strings.TrimSpace(src))
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		label := clean(row.Find("th").First().Text())
		value := clean(row.Find("td").First().Text())
		if label != "" && value != "" {
			if _, seen := lu.Fields[label]; !seen {
				lu.Fields[label] = value
			}
		}
	})
	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			label := clean(dt.Text())
			value := clean(dt.NextFiltered("dd").Text())
			if label != "" && value != "" {
				if _, seen := lu.Fields[label]; !seen {
					lu.Fields[label] = value
				}
			}
		})
	})

	return lu, nil
}

func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
