package transform

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	mediaCSS = "text/css"
	mediaJS  = "application/javascript"
	mediaSVG = "image/svg+xml"
)

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaJS, js.Minify)
	m.AddFunc(mediaSVG, svg.Minify)
	return m
}
