package vision

import (
	"context"
)

// ExtractionPrompt is the instruction sent with every image. Its wording
// determines the response shape that ParseResponse expects and must not change.
const ExtractionPrompt = "Read the text in the image. Create a json object with two keys. One key is ingredients and the other key is instructions. The value of the ingredients key is a asterisk separated string of ingredients from the image. The value of the instructions key is a asterisk separated string of instructions from the image. Separate each ingredient based on the line separation."

// Extractor sends ExtractionPrompt together with a hosted image to a
// multimodal model and returns the completion text untouched.
type Extractor interface {
	Extract(ctx context.Context, imageURL string) (string, error)
}

// RecipeRecord is the decoded model response. Each field holds its items
// joined by Delimiter.
type RecipeRecord struct {
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
}

// ParsedRecipe holds the split items in the order they appear on the page.
type ParsedRecipe struct {
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}
