package render

import _ "embed"

// Starter templates written by `slabgen init`

//go:embed templates/card.html
var DefaultCardTemplate string

//go:embed templates/index.html
var DefaultIndexTemplate string
