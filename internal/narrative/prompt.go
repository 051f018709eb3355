package narrative

import "fmt"

// Fallback title/author applied when the suggestion collaborator is
// unavailable or fails.
const (
	DefaultTitle  = "My Storybook"
	DefaultAuthor = "Anonymous"
)

// MasterPrompt expands the user's character and style descriptions
// into the instruction block prepended to every image request, so
// characters and art style stay consistent across scenes. Pure:
// built once per session and immutable thereafter.
func MasterPrompt(characterDesc, styleDesc string) string {
	return fmt.Sprintf(
		"Master Instructions: Create all images with the following consistent style and character. "+
			"Character Details: A character based on the description '%s'. "+
			"Maintain the character's facial features, clothing, and hair style identically in every image. "+
			"Artistic Style: A consistent style of '%s'. "+
			"The color palette, line work, and overall mood must be the same across all images. "+
			"Do not include any text, letters, or numbers in the generated images. "+
			"This is a storybook, so ensure the style is cohesive from one image to the next.",
		characterDesc, styleDesc,
	)
}
