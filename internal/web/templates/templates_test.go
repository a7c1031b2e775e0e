package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/campaign/internal/bulk"
	"github.com/JonMunkholm/campaign/internal/core"
	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(context.Background(), &sb))
	return sb.String()
}

var groups = []leaders.Group{
	{Candidate: "Gomez", Leaders: []leaders.Leader{
		{ID: "l1", GivenName: "Ana", FamilyName: "Ruiz", Candidate: "Gomez", Active: true},
		{ID: "l2", GivenName: "Beto", FamilyName: "Diaz", Candidate: "Gomez", Active: true},
	}},
}

func TestGrid_EmptyGridCannotSubmit(t *testing.T) {
	view := core.GridView{
		ID:    "g1",
		Rows:  []bulk.Row{bulk.NewRow(1), bulk.NewRow(2)},
		Stats: bulk.Stats{Total: 2},
	}
	html := render(t, Grid(view, groups, nil))

	assert.Contains(t, html, `<section id="grid"`)
	assert.Contains(t, html, `hx-post="/api/grids/g1/rows/2/activate"`)
	assert.Contains(t, html, `<button class="submit" hx-post="/api/grids/g1/submit" disabled>Register 0 voters</button>`)
	assert.Contains(t, html, `<optgroup label="Gomez">`)
	assert.Contains(t, html, "Beto Diaz")
	assert.NotContains(t, html, "notifications")
	assert.NotContains(t, html, "alertdialog")
}

func TestGrid_ActiveRow(t *testing.T) {
	row := bulk.NewRow(1)
	row.Active = true
	row.Identifier = "4567890"
	row.LeaderID = "l2"
	row.Errors = bulk.FieldErrors{bulk.FieldContact: "contact is required"}

	view := core.GridView{
		ID:           "g1",
		Rows:         []bulk.Row{row},
		Stats:        bulk.Stats{Total: 1, Active: 1, Invalid: 1, HasErrors: true},
		PendingRowID: 1,
	}
	html := render(t, Grid(view, groups, []bulk.Notification{{Level: bulk.LevelWarning, Message: "1 row <failed>"}}))

	assert.Contains(t, html, `<tr class="row row-active row-invalid">`)
	assert.Contains(t, html, `hx-post="/api/grids/g1/rows/1/deactivate" checked>`)
	assert.Contains(t, html, `value="4567890"`)
	assert.Contains(t, html, `<option value="l2" selected>Beto Diaz</option>`)
	assert.Contains(t, html, `<small class="field-error">contact is required</small>`)
	assert.Contains(t, html, `<li class="toast toast-warning">1 row &lt;failed&gt;</li>`)
	assert.Contains(t, html, `hx-post="/api/grids/g1/confirmation/confirm"`)
	assert.Contains(t, html, "<span>1 active</span> <span>0 valid</span> <span>1 with errors</span>")
	assert.Contains(t, html, `submit" disabled>`, "rows with errors block submission")
}

func TestGrid_Submitting(t *testing.T) {
	row := bulk.NewRow(1)
	row.Active = true
	view := core.GridView{
		ID:         "g1",
		Rows:       []bulk.Row{row},
		Stats:      bulk.Stats{Total: 1, Active: 1, Valid: 1},
		Submitting: true,
	}
	html := render(t, Grid(view, groups, nil))

	assert.Contains(t, html, `disabled>Registering...</button></section>`)
	assert.Contains(t, html, `<button hx-post="/api/grids/g1/rows/1/temporary-identifier" disabled>Temp ID</button>`)
}

func TestLayout(t *testing.T) {
	html := render(t, BulkPage("Ana <admin>", core.GridView{ID: "g1"}, nil))
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, `<span class="staff">Ana &lt;admin&gt;</span>`)
	assert.Contains(t, html, `<div id="alerts"></div><section id="grid"`)

	login := render(t, LoginPage(`a"b@example.com`, "Email or password is incorrect"))
	assert.NotContains(t, login, "Sign out")
	assert.Contains(t, login, `value="a&#34;b@example.com"`)
	assert.Contains(t, login, "Email or password is incorrect")
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("Grid <gone>", "", "GRID001"))
	assert.Equal(t,
		`<div class="alert alert-error" role="alert"><p class="alert-message">Grid &lt;gone&gt;</p><small class="alert-code">GRID001</small></div>`,
		html)
}
