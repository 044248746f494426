package tools

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"
)

// simulate synthesizes a deterministic-in-shape result for a tool with no
// live backend. Image-style tools return a placeholder URL that encodes the
// requested text; everything else gets a generic acknowledgement.
func simulate(name string, args map[string]any) Result {
	switch name {
	case ToolImageGenerate:
		prompt := stringArg(args, "prompt", "image")
		return ImageOf(placeholderImageURL(prompt), fmt.Sprintf("AI generated an image for: %q.", prompt))
	case ToolImageEditText:
		newText := stringArg(args, "new_text", "edited")
		return ImageOf(placeholderImageURL(newText), fmt.Sprintf("AI edited the image to include text: %q.", newText))
	default:
		return MessageOf(fmt.Sprintf("Successfully executed %s.", name))
	}
}

// placeholderImageURL builds a placehold.co link with a random background
// color and the given text baked into the image.
func placeholderImageURL(text string) string {
	color := fmt.Sprintf("%06x", rand.Intn(0x1000000))
	encoded := url.QueryEscape(text)
	if len(encoded) > 50 {
		encoded = encoded[:50]
		// Never cut inside a %XX escape.
		if i := strings.LastIndex(encoded, "%"); i > len(encoded)-3 {
			encoded = encoded[:i]
		}
	}
	return fmt.Sprintf("https://placehold.co/800x600/%s/FFFFFF/png?text=%s", color, encoded)
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
