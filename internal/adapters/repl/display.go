package repl

import (
	"fmt"
	"io"
	"strings"

	"uniform-tracker/internal/ai"
	"uniform-tracker/internal/core"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  /use <studentID>                       select the student notes refer to")
	fmt.Fprintln(out, "  /student [studentID]                   deficit breakdown (defaults to selected)")
	fmt.Fprintln(out, "  /issue <uniformID> <size> <qty> [batch] log uniforms handed out")
	fmt.Fprintln(out, "  /request <uniformID> <size>            log a size that was not available")
	fmt.Fprintln(out, "  /schools                               deficit headlines per school")
	fmt.Fprintln(out, "  /report <schoolID>                     school deficit report")
	fmt.Fprintln(out, "  /levels                                stock per batch, variant and size")
	fmt.Fprintln(out, "  /stock <variant> <size> <qty> [colour]  check stock across batches")
	fmt.Fprintln(out, "  /export <schoolID> <file.xlsx>         write the school report workbook")
	fmt.Fprintln(out, "  /new-batch <name>                      receive a warehouse delivery")
	fmt.Fprintln(out, "  /help, /exit")
	fmt.Fprintln(out, "Anything else is read as a note about the selected student.")
}

func printProposal(out io.Writer, p *ai.NoteProposal, e *core.LogEntry) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	switch p.Kind {
	case ai.KindIssue:
		fmt.Fprintf(out, "  ISSUE     %d x %s, size %s\n", p.Quantity, uniformLabel(p, e), p.Size)
	case ai.KindSizeRequest:
		fmt.Fprintf(out, "  REQUEST   %s, size %s wanted\n", uniformLabel(p, e), p.Size)
	}
	fmt.Fprintf(out, "  Confidence: %.2f\n", p.Confidence)
	if p.Reasoning != "" {
		fmt.Fprintf(out, "  Reasoning:  %s\n", p.Reasoning)
	}
	fmt.Fprintln(out, strings.Repeat("=", 60))
}

func uniformLabel(p *ai.NoteProposal, e *core.LogEntry) string {
	if e != nil && e.UniformName != "" {
		return e.UniformName
	}
	return p.UniformID
}

func printRecorded(out io.Writer, res *core.IssueResult) {
	e := res.Entry
	switch {
	case res.Replayed:
		fmt.Fprintf(out, "Already recorded as entry %s.\n", e.ID)
		return
	case e.IsSizeRequest():
		fmt.Fprintf(out, "Size request logged: %s size %s.\n", e.UniformName, *e.SizeWanted)
		return
	}
	fmt.Fprintf(out, "Issued %d x %s size %s.", e.QuantityReceived, e.UniformName, *e.SizeReceived)
	switch {
	case res.StockSkipped:
		fmt.Fprint(out, " Stock NOT deducted.")
	case res.Stock != nil:
		fmt.Fprintf(out, " %d left in stock.", res.Stock.Quantity)
	}
	fmt.Fprintln(out)
}
