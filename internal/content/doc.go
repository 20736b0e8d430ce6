// Package content holds the motivational content catalog.
//
// The catalog ships embedded (assets/content.yaml) and can be replaced by a
// file on disk. Items are keyed by language and category; selection avoids
// recently sent ids and falls back to general content, then to the default
// language.
package content
