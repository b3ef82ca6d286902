// verify-agent sends one sample staff note to the model and prints the proposal.
// Use it to check OPENAI_API_KEY and the structured-output schema end to end.
//
// Usage: go run ./cmd/verify-agent ["note text"]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"uniform-tracker/internal/ai"
	"uniform-tracker/internal/config"
	"uniform-tracker/internal/core"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger := config.NewLogger(os.Getenv("LOG_LEVEL"))

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Fatal("OPENAI_API_KEY not set")
	}

	student := core.Student{ID: "demo-student", Name: "Sam Carter", Form: "3B", Level: core.LevelJunior, Gender: core.GenderBoys}
	uniforms := []core.Uniform{
		{ID: "u-shirt", Name: "White Shirt", Type: "Shirt"},
		{ID: "u-jumper", Name: "Navy Jumper", Type: "Jumper"},
		{ID: "u-trousers", Name: "Grey Trousers", Type: "Trousers", Gender: core.GenderBoys},
	}

	note := "Gave Sam two white shirts, size 32. He still needs a jumper in L but we're out."
	if len(os.Args) > 1 {
		note = os.Args[1]
	}

	fmt.Printf("INTERPRETING NOTE: %s\n", note)
	proposal, err := ai.NewAgent(apiKey).InterpretNote(context.Background(), note, student, uniforms)
	if err != nil {
		config.LogError(logger, "verify-agent", "main", "interpret note", note, err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(proposal, "", "  ")
	fmt.Println(string(out))
	if entry := proposal.LogEntry(uniforms); entry != nil {
		draft, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Printf("DRAFT LOG ENTRY:\n%s\n", draft)
	}
}
