package auth

import (
	"embed"

	"github.com/a-h/templ"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/templates/layout"
)

//go:embed views/*.tmpl
var viewFiles embed.FS

var views = layout.Parse(viewFiles, "views/*.tmpl")

// Login renders the sign in page.
func Login(data LoginPageData) templ.Component {
	return layout.Component(views, "login", "Sign in", data)
}
