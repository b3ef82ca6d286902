package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"uniform-tracker/internal/core"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// Proposal kinds.
const (
	KindIssue         = "issue"
	KindSizeRequest   = "size_request"
	KindClarification = "clarification"
)

// NoteProposal is the model's reading of a free-text staff note about one student.
// It is a suggestion only; nothing is written until staff confirm it through the
// normal issue or size-request endpoints.
type NoteProposal struct {
	Kind                 string  `json:"kind" jsonschema:"enum=issue,enum=size_request,enum=clarification"`
	UniformID            string  `json:"uniformId" jsonschema:"description=ID of the uniform from the provided catalogue, empty for clarification"`
	Size                 string  `json:"size" jsonschema:"description=Size handed out (issue) or size wanted (size_request)"`
	Quantity             int     `json:"quantity" jsonschema:"description=Pieces handed out; 0 for size_request and clarification"`
	Confidence           float64 `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning            string  `json:"reasoning"`
	ClarificationMessage string  `json:"clarificationMessage" jsonschema:"description=Question for staff when kind is clarification"`
}

// Validate checks the proposal against the catalogue it was produced from.
func (p *NoteProposal) Validate(uniforms []core.Uniform) error {
	switch p.Kind {
	case KindClarification:
		if strings.TrimSpace(p.ClarificationMessage) == "" {
			return core.Invalid("clarificationMessage", "is required for a clarification")
		}
		return nil
	case KindIssue:
		if p.Quantity < 1 {
			return core.Invalid("quantity", "must be at least 1 for an issue")
		}
	case KindSizeRequest:
		if p.Quantity != 0 {
			return core.Invalid("quantity", "must be 0 for a size request")
		}
	default:
		return core.Invalid("kind", fmt.Sprintf("unknown kind %q", p.Kind))
	}
	if strings.TrimSpace(p.Size) == "" {
		return core.Invalid("size", "is required")
	}
	for _, u := range uniforms {
		if u.ID == p.UniformID {
			return nil
		}
	}
	return core.Invalid("uniformId", fmt.Sprintf("%q is not in the school catalogue", p.UniformID))
}

// LogEntry drafts the log entry the proposal describes. Clarifications have none.
func (p *NoteProposal) LogEntry(uniforms []core.Uniform) *core.LogEntry {
	if p.Kind == KindClarification {
		return nil
	}
	e := &core.LogEntry{UniformID: p.UniformID, QuantityReceived: p.Quantity}
	for _, u := range uniforms {
		if u.ID == p.UniformID {
			e.UniformName = u.Name
			e.UniformType = u.Type
		}
	}
	if p.Kind == KindIssue {
		e.SizeReceived = core.StringPtr(p.Size)
	} else {
		e.SizeWanted = core.StringPtr(p.Size)
	}
	return e
}

type AgentService interface {
	InterpretNote(ctx context.Context, note string, student core.Student, uniforms []core.Uniform) (*NoteProposal, error)
}

type Agent struct {
	client *openai.Client
}

func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

func (a *Agent) InterpretNote(ctx context.Context, note string, student core.Student, uniforms []core.Uniform) (*NoteProposal, error) {
	prompt := fmt.Sprintf(`You help a school outfitter keep a uniform ledger.
Read the staff note about one student and decide what it records.
Rules:
1. kind "issue": uniforms were handed out. Give uniformId, size and quantity (>= 1).
2. kind "size_request": the wanted size was not available. Give uniformId and size, quantity 0.
3. kind "clarification": the note is ambiguous. Ask one short question.
4. Use ONLY uniform IDs from the catalogue below.
5. Provide a confidence score (0.0-1.0) and explain your reasoning.

Student: %s (form %s, %s %s)

Uniform catalogue:
%s

Note: %s`, student.Name, student.Form, student.Level, student.Gender, catalogue(uniforms), note)

	schemaMap, err := schemaAsMap(&NoteProposal{})
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "uniform_note_proposal",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A proposed uniform log entry read from a staff note"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var proposal NoteProposal
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	proposal.Kind = strings.ToLower(strings.TrimSpace(proposal.Kind))
	proposal.Size = strings.TrimSpace(proposal.Size)

	if err := proposal.Validate(uniforms); err != nil {
		return nil, fmt.Errorf("proposal validation failed: %w", err)
	}
	return &proposal, nil
}

func catalogue(uniforms []core.Uniform) string {
	var b strings.Builder
	for _, u := range uniforms {
		fmt.Fprintf(&b, "- %s: %s (%s)", u.ID, u.Name, u.Type)
		if u.Level != "" || u.Gender != "" {
			fmt.Fprintf(&b, " for %s %s", u.Level, u.Gender)
		}
		b.WriteString("\n")
	}
	return b.String()
}
