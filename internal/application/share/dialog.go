package share

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pantrypilot/web/internal/domain/recipe"
)

var whitespace = regexp.MustCompile(`\s+`)

// Dialog is everything the share dialog renders
type Dialog struct {
	OpenID      string
	Recipe      recipe.Recipe
	Link        *recipe.ShareLink
	Err         error
	Text        string
	FileName    string
	TwitterURL  string
	FacebookURL string
	WhatsAppURL string
}

// Ready reports whether the link has been generated
func (d Dialog) Ready() bool {
	return d.Link != nil && d.Link.ShareURL != ""
}

// ShareText is the message posted with a shared recipe
func ShareText(title string) string {
	return "Check out this recipe for " + title + " on PantryPilot! 🍳"
}

// FileName returns the card image download name, e.g. "pad-thai-card.png"
func FileName(title string) string {
	return strings.ToLower(whitespace.ReplaceAllString(title, "-")) + "-card.png"
}

// NewDialog assembles the dialog. link may be nil while the request failed.
func NewDialog(openID string, r recipe.Recipe, link *recipe.ShareLink, err error) Dialog {
	d := Dialog{
		OpenID:   openID,
		Recipe:   r,
		Link:     link,
		Err:      err,
		Text:     ShareText(r.Title),
		FileName: FileName(r.Title),
	}
	if !d.Ready() {
		return d
	}

	shareURL := link.ShareURL
	d.TwitterURL = "https://twitter.com/intent/tweet?text=" + url.QueryEscape(d.Text) + "&url=" + url.QueryEscape(shareURL)
	d.FacebookURL = "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(shareURL)
	d.WhatsAppURL = "https://wa.me/?text=" + url.QueryEscape(d.Text+" "+shareURL)
	return d
}
