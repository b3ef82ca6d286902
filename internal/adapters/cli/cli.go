package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"uniform-tracker/internal/app"
	"uniform-tracker/internal/core"
)

// Usage lists the one-shot commands.
const Usage = `Usage: app <command> [args]

Commands:
  schools                                   list schools with deficit headlines
  report  <schoolID>                        school deficit report
  student <studentID>                       one student's deficit breakdown
  stock   <variantType> <size> <qty> [color] check stock across all batches
  levels                                    stock levels per batch, variant and size
  export  <schoolID> <file.xlsx>            write the school report as a workbook
  note    <studentID> "<staff note>"        ask the AI to read a note (not saved)`

// Run executes a one-shot CLI command, writing human output to out.
// args is os.Args[1:]: the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", Usage)
	}

	switch args[0] {
	case "schools", "s":
		result, err := svc.SchoolSummaries(ctx)
		if err != nil {
			return fmt.Errorf("failed to load schools: %w", err)
		}
		printSummaries(out, result.Schools)

	case "report", "r":
		if len(args) < 2 {
			return fmt.Errorf("usage: app report <schoolID>")
		}
		school, err := svc.GetSchool(ctx, args[1])
		if err != nil {
			return err
		}
		report, err := svc.SchoolReport(ctx, args[1])
		if err != nil {
			return err
		}
		printReport(out, school, report)

	case "student":
		if len(args) < 2 {
			return fmt.Errorf("usage: app student <studentID>")
		}
		student, err := svc.GetStudent(ctx, args[1])
		if err != nil {
			return err
		}
		d, err := svc.StudentDeficit(ctx, args[1])
		if err != nil {
			return err
		}
		printStudent(out, student, d)

	case "stock":
		if len(args) < 4 {
			return fmt.Errorf("usage: app stock <variantType> <size> <qty> [color]")
		}
		qty, err := strconv.Atoi(args[3])
		if err != nil {
			return core.Invalid("qty", "must be an integer")
		}
		req := app.StockCheckRequest{VariantType: args[1], Size: args[2], Quantity: qty}
		if len(args) > 4 {
			req.Color = args[4]
		}
		check, err := svc.CheckStock(ctx, req)
		if err != nil {
			return err
		}
		verdict := "AVAILABLE"
		if !check.Available {
			verdict = "SHORT"
		}
		fmt.Fprintf(out, "%s size %s x%d: %s (in stock: %d)\n", req.VariantType, req.Size, qty, verdict, check.CurrentStock)

	case "levels":
		result, err := svc.StockLevels(ctx)
		if err != nil {
			return err
		}
		printLevels(out, result.Levels)

	case "export":
		if len(args) < 3 {
			return fmt.Errorf("usage: app export <schoolID> <file.xlsx>")
		}
		f, err := os.Create(args[2])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[2], err)
		}
		if err := svc.ExportSchoolReport(ctx, args[1], f); err != nil {
			f.Close()
			_ = os.Remove(args[2])
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", args[2])

	case "note", "n":
		if len(args) < 3 {
			return fmt.Errorf("usage: app note <studentID> \"<staff note>\"")
		}
		result, err := svc.InterpretNote(ctx, app.NoteRequest{StudentID: args[1], Text: args[2]})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
	return nil
}

func printSummaries(out io.Writer, schools []core.SchoolSummary) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-36s %-24s %8s %8s %8s %8s\n", "ID", "SCHOOL", "PUPILS", "SHORT", "DEFICIT", "REQS")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 98))
	for _, s := range schools {
		fmt.Fprintf(out, "  %-36s %-24s %8d %8d %8d %8d\n",
			s.SchoolID, truncate(s.SchoolName, 24), s.TotalStudents, s.StudentsWithDeficits, s.TotalDeficit, s.OpenSizeRequests)
	}
	fmt.Fprintln(out)
}

func printReport(out io.Writer, school *core.School, r *core.SchoolDeficitReport) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  DEFICIT REPORT: %s\n", school.Name)
	fmt.Fprintf(out, "  Students: %d   With deficits: %d\n", r.TotalStudents, r.StudentsWithDeficits)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintf(out, "  %-28s %-8s %-8s %8s %10s\n", "UNIFORM", "LEVEL", "GENDER", "DEFICIT", "STUDENTS")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 68))
	for _, d := range r.UniformDeficits {
		fmt.Fprintf(out, "  %-28s %-8s %-8s %8d %10d\n", truncate(d.UniformName, 28), d.Level, d.Gender, d.TotalDeficit, len(d.StudentsAffected))
	}
	if len(r.SizeRequests) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  OPEN SIZE REQUESTS")
		for _, b := range r.SizeRequests {
			names := make([]string, 0, len(b.Students))
			for _, s := range b.Students {
				names = append(names, s.Name)
			}
			fmt.Fprintf(out, "  %-28s %-6s %s\n", truncate(b.UniformName, 28), b.Size, strings.Join(names, ", "))
		}
	}
	fmt.Fprintln(out)
}

func printStudent(out io.Writer, s *core.Student, d *core.StudentDeficit) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s (form %s, %s %s)\n", s.Name, s.Form, s.Level, s.Gender)
	fmt.Fprintf(out, "  Status: %s   Completion: %d%%   Deficit: %d\n", d.Status, d.CompletionRate, d.TotalDeficit)
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, l := range d.Lines {
		pending := ""
		if len(l.PendingRequests) > 0 {
			pending = fmt.Sprintf("  (%d size request(s) open)", len(l.PendingRequests))
		}
		fmt.Fprintf(out, "  %-28s %3d / %-3d short %d%s\n", truncate(l.UniformName, 28), l.Received, l.QuantityPerStudent, l.Deficit, pending)
	}
	fmt.Fprintln(out)
}

func printLevels(out io.Writer, levels []core.StockLevel) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-20s %-14s %-10s %-6s %6s %10s\n", "BATCH", "VARIANT", "COLOUR", "SIZE", "QTY", "VALUE")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))
	for _, l := range levels {
		depleted := ""
		if l.DepletedAt != nil {
			depleted = "  depleted " + l.DepletedAt.Format("2006-01-02")
		}
		fmt.Fprintf(out, "  %-20s %-14s %-10s %-6s %6d %10s%s\n",
			truncate(l.BatchName, 20), truncate(l.VariantType, 14), truncate(l.Color, 10), l.Size, l.Quantity, l.Value.StringFixed(2), depleted)
	}
	fmt.Fprintln(out)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
