package view

import (
	"embed"
	"html/template"
	"io"
	"math"
	"strconv"
	"time"
)

// Title is the subheader every leaderboard page carries.
const Title = "Top Fans"

const unavailableNotice = "The leaderboard is unavailable right now. Please try again later."

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// RowData is one rendered leaderboard row.
type RowData struct {
	Key    string
	Name   string
	Amount string
}

// PageData is the template model of a leaderboard page.
type PageData struct {
	Title          string
	Loading        bool
	RefreshSeconds int
	Notice         string
	Rows           []RowData
}

// NewPageData flattens a state into what the page template needs. refresh is
// how soon a loading page asks the browser to render it again.
func NewPageData(s State, refresh time.Duration) PageData {
	data := PageData{
		Title:          Title,
		Loading:        s.Processing,
		RefreshSeconds: refreshSeconds(refresh),
	}
	if s.Processing {
		return data
	}
	if s.Status == StatusErrored && s.Unavailable {
		data.Notice = unavailableNotice
	}
	data.Rows = make([]RowData, 0, len(s.Sellers))
	for _, seller := range s.Sellers {
		data.Rows = append(data.Rows, RowData{
			Key:    seller.Email,
			Name:   seller.Name,
			Amount: FormatAmount(seller.Amount),
		})
	}
	return data
}

// RenderPage writes the full leaderboard page for s.
func RenderPage(w io.Writer, s State, refresh time.Duration) error {
	return pageTemplate.ExecuteTemplate(w, "page", NewPageData(s, refresh))
}

// FormatAmount prints an amount in its shortest decimal form: 120, 80.5.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func refreshSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
