package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"uniform-tracker/internal/app"

	"github.com/shopspring/decimal"
)

// handleNewBatch runs an interactive batch receiving session.
func handleNewBatch(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService, name string) error {
	fmt.Fprintf(out, "Receiving batch: %s\n", name)
	fmt.Fprintln(out, "Enter one variant per line. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(out, "Format per line: <variantType> <colour|-> <price> <size>:<qty>[,<size>:<qty>...]")
	fmt.Fprintln(out, "  Example: Shirt White 12.50 S:10,M:20,L:5")
	fmt.Fprintln(out, "  Example: Tie - 4.00 OS:30")

	var items []app.BatchItemInput
	lineNum := 1
	for {
		fmt.Fprintf(out, "  Line %d: ", lineNum)
		raw, err := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, "cancel") || (raw == "" && err != nil) {
			fmt.Fprintln(out, "Batch cancelled.")
			return nil
		}
		if strings.EqualFold(raw, "done") {
			break
		}
		if raw == "" {
			continue
		}

		item, perr := parseItemLine(raw)
		if perr != nil {
			fmt.Fprintf(out, "  %v\n", perr)
			continue
		}
		items = append(items, item)
		lineNum++
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "No items entered. Batch cancelled.")
		return nil
	}

	batch, err := svc.ReceiveBatch(ctx, app.ReceiveBatchRequest{Name: name, Items: items})
	if err != nil {
		return err
	}
	total := 0
	for _, it := range batch.Items {
		for _, sz := range it.Sizes {
			total += sz.Quantity
		}
	}
	fmt.Fprintf(out, "Batch %s received: %d variant(s), %d piece(s).\n", batch.ID, len(batch.Items), total)
	return nil
}

func parseItemLine(raw string) (app.BatchItemInput, error) {
	parts := strings.Fields(raw)
	if len(parts) < 4 {
		return app.BatchItemInput{}, fmt.Errorf("invalid format, use: <variantType> <colour|-> <price> <size>:<qty>,...")
	}
	price, err := decimal.NewFromString(parts[2])
	if err != nil || price.IsNegative() {
		return app.BatchItemInput{}, fmt.Errorf("invalid price: %s", parts[2])
	}
	color := parts[1]
	if color == "-" {
		color = ""
	}

	item := app.BatchItemInput{VariantType: parts[0], Color: color, Price: price}
	for _, pair := range strings.Split(strings.Join(parts[3:], ""), ",") {
		size, qtyStr, ok := strings.Cut(pair, ":")
		if !ok || size == "" {
			return app.BatchItemInput{}, fmt.Errorf("invalid size entry: %q", pair)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty < 0 {
			return app.BatchItemInput{}, fmt.Errorf("invalid quantity for size %s: %q", size, qtyStr)
		}
		item.Sizes = append(item.Sizes, app.SizeInput{Size: size, Quantity: qty})
	}
	return item, nil
}
