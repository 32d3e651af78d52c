package scan

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

type ProbeResult struct {
	Status int
	Title  string
}

// OK reports a 2xx response.
func (p ProbeResult) OK() bool {
	return p.Status >= 200 && p.Status < 300
}

// Prober checks that the target answers before any auditor is started.
type Prober struct {
	client *resty.Client
}

func NewProber(timeout time.Duration) *Prober {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("user-agent", "a11yminer-scan")
	return &Prober{client: client}
}

// Probe fetches url and extracts the page title. A non-2xx status is not an
// error; only transport failures are.
func (p *Prober) Probe(ctx context.Context, url string) (ProbeResult, error) {
	res, err := p.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return ProbeResult{}, err
	}
	out := ProbeResult{Status: res.StatusCode()}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return out, nil
	}
	out.Title = strings.TrimSpace(doc.Find("title").First().Text())
	return out, nil
}
