package checks

import (
	"strings"
	"unicode"
)

// findTerm returns the first term that occurs in text on word boundaries.
// text is expected lower-cased.
func findTerm(text string, terms []string) (string, bool) {
	for _, term := range terms {
		if containsTerm(text, term) {
			return term, true
		}
	}
	return "", false
}

func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for start := 0; start <= len(text)-len(term); {
		i := strings.Index(text[start:], term)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(term)
		if (!isWordByte(term[0]) || boundaryBefore(text, i)) &&
			(!isWordByte(term[len(term)-1]) || boundaryAfter(text, end)) {
			return true
		}
		start = i + 1
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(text[i-1])
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	return !isWordByte(text[end])
}

func isWordByte(b byte) bool {
	return b < 0x80 && (unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)))
}

// nameAndMetadata is the repository name plus description and topics, without
// the README.
func nameAndMetadata(name, metadata string) string {
	return strings.ToLower(name) + " " + metadata
}

var (
	libraryNamePrefixes = []string{
		"react-", "vue-", "angular-", "ng-", "svelte-", "preact-", "next-", "nuxt-",
		"gatsby-", "eslint-", "babel-", "webpack-", "vite-", "rollup-", "postcss-",
		"tailwind-", "tailwindcss-", "jquery-", "gulp-", "grunt-", "express-",
		"django-", "flask-", "laravel-", "rails-", "go-", "node-",
	}
	libraryNameSuffixes = []string{
		"-ui", "-kit", "-utils", "-util", "-lib", "-library", "-sdk", "-cli",
		"-plugin", "-components", "-hooks", "-loader", "-theme", "-template",
		"-starter", "-boilerplate", ".js", "-js",
	}

	strongLibraryKeywords = []string{
		"library", "framework", "boilerplate", "starter kit", "starter template",
		"sdk", "cli tool", "command line tool", "command-line tool",
		"npm install", "yarn add", "pnpm add", "pip install", "go get",
		"component library", "ui kit", "toolkit", "api wrapper", "plugin for",
	}
	appKeywords = []string{
		"web app", "webapp", "web application", "web-app", "website",
		"dashboard", "online store", "e-commerce", "ecommerce", "storefront",
		"saas", "portal", "live demo", "admin panel", "landing page",
	}

	curatedListTerms = []string{
		"awesome list", "curated list", "a curated list", "list of resources",
		"collection of resources", "collection of awesome", "awesome-",
	}
	docsTutorialTerms = []string{
		"tutorial", "tutorials", "course", "cheatsheet", "cheat sheet",
		"interview questions", "roadmap", "learning resources", "documentation site",
		"docs site", "handbook", "guide to", "book", "examples",
	}
	dotfilesTerms = []string{
		"dotfiles", "my config", "vimrc", "neovim config", "nvim config",
		"vim configuration", "zsh config", "emacs config", "my setup",
	}

	webAppKeywords = []string{
		"web app", "webapp", "web application", "web-app", "website",
		"online store", "online shop", "e-commerce", "ecommerce", "storefront",
		"dashboard", "saas", "portal", "single page application",
		"progressive web app", "pwa", "social network", "admin panel",
		"landing page", "blog platform", "cms", "full-stack", "fullstack",
	}
	nonAppKeywords = []string{
		"library", "framework", "sdk", "plugin", "cli tool", "command line tool",
		"command-line tool", "toolkit", "boilerplate", "component library",
		"npm package",
	}
	webAppTopics = []string{
		"web-app", "webapp", "web-application", "webapplication", "website",
		"ecommerce", "e-commerce", "online-store", "dashboard", "admin-dashboard",
		"saas", "pwa", "progressive-web-app", "spa", "single-page-application",
		"fullstack", "full-stack", "social-network", "cms", "blog",
	}
)
