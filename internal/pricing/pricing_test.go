package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

var testDevice = models.DeviceContext{
	DeviceType: "laptop",
	Brand:      "ASUS",
	Model:      "ROG G614J",
	IssueType:  "hardware",
}

func TestSerpClientPriceFor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("engine"); got != "amazon" {
			t.Errorf("engine = %q, want amazon", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q", got)
		}
		if got := r.URL.Query().Get("k"); got == "" {
			t.Error("expected a search query")
		}
		w.Header().Set("Content-Type", "application/json")
		// First result has no price; the second wins.
		w.Write([]byte(`{"organic_results":[
			{"title":"Protective sleeve"},
			{"title":"Replacement screen","extracted_price":689.5},
			{"title":"Another screen","extracted_price":720}
		]}`))
	}))
	defer srv.Close()

	c, err := NewSerpClient(WithAPIKey("test-key"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	price, err := c.PriceFor(context.Background(), testDevice, "screen")
	if err != nil {
		t.Fatal(err)
	}
	if price != 689.5 {
		t.Errorf("price = %v, want 689.5", price)
	}
}

func TestSerpClientNoPricedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results":[{"title":"Sponsored listing"}]}`))
	}))
	defer srv.Close()

	c, err := NewSerpClient(WithAPIKey("test-key"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.PriceFor(context.Background(), testDevice, "hinge"); err == nil {
		t.Fatal("expected error when no results carry a price")
	}
}

func TestSerpClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewSerpClient(WithAPIKey("test-key"), WithEndpoint(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.PriceFor(context.Background(), testDevice, "screen"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestNewSerpClientRequiresKey(t *testing.T) {
	if _, err := NewSerpClient(); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestStaticCatalog(t *testing.T) {
	c := NewStaticCatalog()

	price, err := c.PriceFor(context.Background(), testDevice, "screen")
	if err != nil {
		t.Fatal(err)
	}
	if price != 680 {
		t.Errorf("screen price = %v, want 680", price)
	}

	// Unknown parts fall back to the default price.
	price, err = c.PriceFor(context.Background(), testDevice, "flux capacitor")
	if err != nil {
		t.Fatal(err)
	}
	if price != 250 {
		t.Errorf("default price = %v, want 250", price)
	}
}
