// Package templates holds the HTML components of the registration UI.
//
// Components are written in templ and compiled to Go; handlers render pages
// and HTMX partials the same way: component.Render(ctx, w).
package templates

//go:generate templ generate
