package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"uniform-tracker/internal/adapters/cli"
	"uniform-tracker/internal/ai"
	"uniform-tracker/internal/app"
	"uniform-tracker/internal/core"
)

var errExit = errors.New("exit")

// session holds the REPL state between lines.
type session struct {
	ctx     context.Context
	svc     app.ApplicationService
	reader  *bufio.Reader
	out     io.Writer
	student *core.Student
}

// Run starts the interactive intake loop. Slash commands are dispatched
// deterministically; any other line is a staff note about the selected student
// and is routed through the AI agent.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) {
	s := &session{ctx: ctx, svc: svc, reader: reader, out: out}

	fmt.Fprintln(out, "Uniform Tracker")
	fmt.Fprintln(out, "Select a student with /use <studentID>, then describe what was handed out.")
	fmt.Fprintln(out, "Type /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}

		if strings.HasPrefix(input, "/") {
			if err := s.dispatchSlash(input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return
				}
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			continue
		}

		if s.student == nil {
			fmt.Fprintln(out, "No student selected. Use /use <studentID> first.")
			continue
		}
		if err := s.handleNote(input); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func (s *session) dispatchSlash(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "use":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /use <studentID>")
			return nil
		}
		st, err := s.svc.GetStudent(s.ctx, args[0])
		if err != nil {
			return err
		}
		s.student = st
		fmt.Fprintf(s.out, "Selected %s (form %s, %s %s).\n", st.Name, st.Form, st.Level, st.Gender)

	case "schools", "report", "levels", "stock", "export":
		return cli.Run(s.ctx, s.svc, append([]string{cmd}, args...), s.out)

	case "student":
		id := ""
		if len(args) > 0 {
			id = args[0]
		} else if s.student != nil {
			id = s.student.ID
		}
		if id == "" {
			fmt.Fprintln(s.out, "Usage: /student <studentID>")
			return nil
		}
		return cli.Run(s.ctx, s.svc, []string{"student", id}, s.out)

	case "issue":
		if s.student == nil {
			fmt.Fprintln(s.out, "No student selected. Use /use <studentID> first.")
			return nil
		}
		if len(args) < 3 {
			fmt.Fprintln(s.out, "Usage: /issue <uniformID> <size> <qty> [batchID]")
			return nil
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(s.out, "Invalid quantity: %s\n", args[2])
			return nil
		}
		req := app.IssueRequest{StudentID: s.student.ID, UniformID: args[0], Size: args[1], Quantity: qty}
		if len(args) > 3 {
			req.BatchID = args[3]
		}
		return s.issue(req)

	case "request":
		if s.student == nil {
			fmt.Fprintln(s.out, "No student selected. Use /use <studentID> first.")
			return nil
		}
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: /request <uniformID> <size>")
			return nil
		}
		res, err := s.svc.RecordSizeRequest(s.ctx, app.SizeRequestRequest{StudentID: s.student.ID, UniformID: args[0], SizeWanted: args[1]})
		if err != nil {
			return err
		}
		printRecorded(s.out, res)

	case "new-batch":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /new-batch <name>")
			return nil
		}
		return handleNewBatch(s.ctx, s.reader, s.out, s.svc, strings.Join(args, " "))

	case "help", "h":
		printHelp(s.out)

	case "exit", "quit", "e", "q":
		return errExit

	default:
		fmt.Fprintf(s.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

// handleNote asks the agent to read a note, loops on clarifications for up to
// three rounds, then asks staff to confirm before anything is written.
func (s *session) handleNote(note string) error {
	fmt.Fprintln(s.out, "[AI] Reading note...")
	accumulated := note

	for round := 1; round <= 3; round++ {
		result, err := s.svc.InterpretNote(s.ctx, app.NoteRequest{StudentID: s.student.ID, Text: accumulated})
		if err != nil {
			return err
		}

		p := result.Proposal
		if p.Kind == ai.KindClarification {
			fmt.Fprintf(s.out, "\n[AI]: %s\n> ", p.ClarificationMessage)
			followUp, _ := s.reader.ReadString('\n')
			followUp = strings.TrimSpace(followUp)

			if strings.HasPrefix(followUp, "/") {
				fmt.Fprintln(s.out, "(AI session cancelled)")
				return s.dispatchSlash(followUp)
			}
			if followUp == "" || strings.EqualFold(followUp, "cancel") {
				fmt.Fprintln(s.out, "Cancelled.")
				return nil
			}
			accumulated = fmt.Sprintf("Original note: %s\nClarification requested: %s\nStaff response: %s",
				accumulated, p.ClarificationMessage, followUp)
			continue
		}

		printProposal(s.out, p, result.Entry)
		if p.Confidence < 0.6 {
			fmt.Fprintln(s.out, "\nWARNING: Low confidence proposal.")
		}
		if !s.confirm("\nRecord this? (y/n): ") {
			fmt.Fprintln(s.out, "Not recorded.")
			return nil
		}

		if p.Kind == ai.KindSizeRequest {
			res, err := s.svc.RecordSizeRequest(s.ctx, app.SizeRequestRequest{
				StudentID: s.student.ID, UniformID: p.UniformID, SizeWanted: p.Size, LoggedBy: "repl",
			})
			if err != nil {
				return err
			}
			printRecorded(s.out, res)
			return nil
		}

		fmt.Fprint(s.out, "Batch to deduct from (blank for none): ")
		batchID, _ := s.reader.ReadString('\n')
		return s.issue(app.IssueRequest{
			StudentID: s.student.ID, UniformID: p.UniformID, Size: p.Size, Quantity: p.Quantity,
			BatchID: strings.TrimSpace(batchID), LoggedBy: "repl",
		})
	}

	fmt.Fprintln(s.out, "Could not produce a proposal. Try /issue or /request instead.")
	return nil
}

// issue records req and, when the batch is short, offers to log it without a
// deduction.
func (s *session) issue(req app.IssueRequest) error {
	res, err := s.svc.RecordIssue(s.ctx, req)
	var short *core.InsufficientStockError
	if errors.As(err, &short) {
		fmt.Fprintf(s.out, "Only %d left in size %s.\n", short.Available, short.Size)
		if !s.confirm("Log the issue anyway without deducting stock? (y/n): ") {
			fmt.Fprintln(s.out, "Not recorded.")
			return nil
		}
		req.Override = true
		res, err = s.svc.RecordIssue(s.ctx, req)
	}
	if err != nil {
		return err
	}
	printRecorded(s.out, res)
	return nil
}

func (s *session) confirm(prompt string) bool {
	fmt.Fprint(s.out, prompt)
	choice, _ := s.reader.ReadString('\n')
	choice = strings.TrimSpace(strings.ToLower(choice))
	return choice == "y" || choice == "yes"
}
