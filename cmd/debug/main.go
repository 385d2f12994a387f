package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/config"
	"github.com/maltedev/amazon-product-scraper/internal/parser"
	"github.com/maltedev/amazon-product-scraper/pkg/logger"
)

// debug opens a single product or listing page, saves its HTML and prints
// what the extractor reads from it. With -file it parses a saved page
// without starting a browser.
func main() {
	var (
		url     = flag.String("url", "", "URL to debug")
		file    = flag.String("file", "", "parse a saved HTML file instead of a URL")
		html    = flag.String("html", "debug.html", "HTML output filename")
		listing = flag.Bool("listing", false, "treat the page as a search results page")
		settle  = flag.Duration("settle", 5*time.Second, "wait after navigation")
	)
	flag.Parse()

	if *url == "" && *file == "" {
		fmt.Println("Please provide a URL with -url or a saved page with -file")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting debug mode")

	content, pageURL, err := loadPage(cfg, *url, *file, *html, *settle)
	if err != nil {
		log.Error("failed to load page", "error", err)
		os.Exit(1)
	}

	p := parser.NewAmazonParser(log)

	var out interface{}
	if *listing {
		out, err = p.ParseListing(content, pageURL)
	} else {
		out, err = p.ParseProduct(content)
	}
	if err != nil {
		log.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error("failed to encode result", "error", err)
		os.Exit(1)
	}
}

func loadPage(cfg *config.Config, url, file, htmlOut string, settle time.Duration) (string, string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", "", err
		}
		return string(data), cfg.Scraper.HomeURL, nil
	}

	session, err := browser.Open(cfg.BrowserOptions())
	if err != nil {
		return "", "", fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer session.Close()

	page, err := session.NewPage()
	if err != nil {
		return "", "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := page.Goto(url); err != nil {
		return "", "", fmt.Errorf("failed to navigate: %w", err)
	}
	time.Sleep(settle)

	content, err := page.Content()
	if err != nil {
		return "", "", fmt.Errorf("failed to get content: %w", err)
	}
	if err := os.WriteFile(htmlOut, []byte(content), 0644); err != nil {
		return "", "", fmt.Errorf("failed to save HTML: %w", err)
	}

	current, err := page.URL()
	if err != nil {
		current = url
	}
	return content, current, nil
}
