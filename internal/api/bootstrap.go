package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchToken loads the dashboard page at pagePath and reads the anti-forgery
// token from its metadata. The token value comes from meta[name=_csrf] or a
// hidden _csrf input; the header name from meta[name=_csrf_header].
func (c *Client) FetchToken(ctx context.Context, pagePath string) (Token, error) {
	if pagePath == "" {
		pagePath = "/"
	}
	if !strings.HasPrefix(pagePath, "/") {
		pagePath = "/" + pagePath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+pagePath, nil)
	if err != nil {
		return Token{}, fmt.Errorf("create token page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("fetch token page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, &StatusError{Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("parse token page: %w", err)
	}
	return tokenFromDocument(doc), nil
}

func tokenFromDocument(doc *goquery.Document) Token {
	tok := Token{Header: DefaultTokenHeader}
	if v, ok := doc.Find(`meta[name="_csrf"]`).First().Attr("content"); ok {
		tok.Value = strings.TrimSpace(v)
	}
	if tok.Value == "" {
		if v, ok := doc.Find(`input[name="_csrf"]`).First().Attr("value"); ok {
			tok.Value = strings.TrimSpace(v)
		}
	}
	if h, ok := doc.Find(`meta[name="_csrf_header"]`).First().Attr("content"); ok && strings.TrimSpace(h) != "" {
		tok.Header = strings.TrimSpace(h)
	}
	return tok
}

// Bootstrap fetches the token once and stores it on the client.
func (c *Client) Bootstrap(ctx context.Context, pagePath string) (Token, error) {
	tok, err := c.FetchToken(ctx, pagePath)
	if err != nil {
		return Token{}, err
	}
	c.Token = tok
	c.logger().Info("anti-forgery token loaded", "header", tok.Header, "present", tok.Value != "")
	return tok, nil
}
