package middleware

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type ErrorResponse struct {
	Status       int      `json:"status"`
	Message      string   `json:"message"`
	Error        string   `json:"error,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`
	RequestedURL string   `json:"requested_url,omitempty"`
}

// Available API routes for suggestions
var availableRoutes = []string{
	"GET /health",
	"POST /api/v1/search",
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	errorDetail := ""

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		errorDetail = err.Error()
		log.Printf("Unhandled error: %v", err)
	}

	response := ErrorResponse{
		Status:       code,
		Message:      message,
		RequestedURL: c.OriginalURL(),
	}

	// Include the underlying error text for errors that are not *fiber.Error
	if errorDetail != "" {
		response.Error = errorDetail
	}

	// Enhanced 404 handling with route suggestions
	if code == fiber.StatusNotFound {
		response.Message = fmt.Sprintf("Endpoint not found: %s %s", c.Method(), c.Path())
		response.Suggestions = generateRouteSuggestions(c.Method(), c.Path())
		
		// Add helpful message about available endpoints
		if len(response.Suggestions) == 0 {
			response.Error = "This endpoint does not exist. Check the available routes below for valid API endpoints."
		}
	}

	return c.Status(code).JSON(response)
}

// generateRouteSuggestions provides helpful route suggestions for 404 errors
func generateRouteSuggestions(method, path string) []string {
	var suggestions []string
	
	// Normalize path for comparison
	normalizedPath := strings.ToLower(path)
	
	// Look for similar routes based on path segments
	for _, route := range availableRoutes {
		routeParts := strings.Fields(route)
		if len(routeParts) >= 2 {
			routeMethod := routeParts[0]
			routePath := strings.ToLower(routeParts[1])
			
			// If methods match or method is GET, suggest the route
			if routeMethod == method || method == "GET" {
				if strings.Contains(normalizedPath, "search") && strings.Contains(routePath, "search") {
					suggestions = append(suggestions, route)
				} else if strings.Contains(normalizedPath, "health") && strings.Contains(routePath, "health") {
					suggestions = append(suggestions, route)
				}
			}
		}
	}
	
	// If no specific suggestions found, provide common endpoints
	if len(suggestions) == 0 {
		suggestions = []string{
			"GET /health - Health check endpoint",
			"POST /api/v1/search - Search case law",
		}
	}
	
	return suggestions
}
