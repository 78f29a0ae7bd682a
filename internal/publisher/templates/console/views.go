package console

import (
	"embed"

	"github.com/a-h/templ"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/templates/layout"
)

//go:embed views/*.tmpl
var viewFiles embed.FS

var views = layout.Parse(viewFiles, "views/*.tmpl")

const pageTitle = "Site Publisher"

// Page renders the full console.
func Page(data PageData) templ.Component {
	return layout.Component(views, "page", pageTitle, data)
}

// History renders the state fragment swapped after syncs and workflows.
func History(data HistoryData) templ.Component {
	return layout.Component(views, "history", pageTitle, data)
}

// PublishModal renders the publish dialog.
func PublishModal(data PublishModalData) templ.Component {
	return layout.Component(views, "publish-modal", pageTitle, data)
}

// VersionFieldFragment renders the derived version input.
func VersionFieldFragment(data VersionField) templ.Component {
	return layout.Component(views, "version-field", pageTitle, data)
}

// RevertModal renders the revert confirmation dialog.
func RevertModal(data RevertModalData) templ.Component {
	return layout.Component(views, "revert-modal", pageTitle, data)
}

// ModalSuccess renders a workflow confirmation that closes itself.
func ModalSuccess(data SuccessData) templ.Component {
	return layout.Component(views, "modal-success", pageTitle, data)
}
