package readme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	src := "# Storefront\n\n" +
		"An **online shop** built with [Vite](https://vitejs.dev).\n\n" +
		"![build](https://img.shields.io/badge/build-passing-green)\n\n" +
		"```sh\nnpm install\nnpm run a11y\n```\n\n" +
		"<div align=\"center\"><img src=\"logo.png\"></div>\n"

	got := PlainText(src)

	assert.Contains(t, got, "Storefront")
	assert.Contains(t, got, "An online shop built with Vite.")
	assert.Contains(t, got, "npm install")
	assert.Contains(t, got, "build")
	assert.NotContains(t, got, "https://vitejs.dev")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "<div")
}

func TestPlainText_Empty(t *testing.T) {
	assert.Equal(t, "", PlainText(""))
	assert.Equal(t, "", PlainText("\n\n"))
}

func TestPlainText_Truncates(t *testing.T) {
	src := strings.Repeat("a", MaxBytes+100)
	assert.LessOrEqual(t, len(PlainText(src)), MaxBytes)
}
