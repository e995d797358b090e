// Command querycli is a thin operational tool that POSTs a query to a
// running server and pretty-prints the response, the same role the
// teacher's cmd/setup-index plays relative to the request path: useful for
// an operator, not part of serving traffic.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"caselaw-retrieval/pkg/models"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of a running server")
	query := flag.String("query", "", "search query text")
	maxResults := flag.Int("max-results", 10, "maximum cases to return")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")
	flag.Parse()

	if *query == "" {
		log.Fatal("missing -query")
	}

	req := models.SearchRequest{
		Query:      *query,
		MaxResults: *maxResults,
		RequestID:  uuid.NewString(),
	}
	body, err := json.Marshal(req)
	if err != nil {
		log.Fatalf("failed to encode request: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	httpReq, err := http.NewRequest(http.MethodPost, *server+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("server returned %s: %s\n", resp.Status, raw)
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(pretty.String())
}
