package data

import (
	"strings"
	"testing"
)

func TestDescriptorText(t *testing.T) {
	d := &Descriptor{
		Owner:       "acme",
		Name:        "Storefront",
		Description: "Online SHOP",
		Topics:      []string{"webapp", "e-commerce"},
		Homepage:    "https://storefront.acme.com",
	}

	got := d.Text()
	for _, want := range []string{"storefront", "online shop", "webapp e-commerce", "https://storefront.acme.com"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Text() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(d.MetadataText(), "storefront online") {
		t.Fatalf("MetadataText should not include the name: %q", d.MetadataText())
	}
}

func TestDescriptorWithReadme_Copies(t *testing.T) {
	d := &Descriptor{Owner: "acme", Name: "app", Topics: []string{"a"}}
	withReadme := d.WithReadme("Run npm start")

	if d.ReadmeLoaded || d.Readme != "" {
		t.Fatalf("original descriptor was mutated: %+v", d)
	}
	if !withReadme.ReadmeLoaded || withReadme.Readme != "Run npm start" {
		t.Fatalf("unexpected copy: %+v", withReadme)
	}
	withReadme.Topics[0] = "b"
	if d.Topics[0] != "a" {
		t.Fatalf("topics slice shared between copies")
	}
	if !strings.Contains(withReadme.Text(), "run npm start") {
		t.Fatalf("README missing from Text(): %q", withReadme.Text())
	}
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in      string
		owner   string
		name    string
		wantErr bool
	}{
		{in: "acme/app", owner: "acme", name: "app"},
		{in: " acme/app ", owner: "acme", name: "app"},
		{in: "acme", wantErr: true},
		{in: "acme/", wantErr: true},
		{in: "/app", wantErr: true},
		{in: "acme/app/extra", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, name, err := SplitFullName(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if owner != tt.owner || name != tt.name {
				t.Fatalf("got %q/%q", owner, name)
			}
		})
	}
}
