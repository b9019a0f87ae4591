package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	appasset "github.com/stockroom/backend/internal/application/asset"
	appinventory "github.com/stockroom/backend/internal/application/inventory"
	appprocurement "github.com/stockroom/backend/internal/application/procurement"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

var version = "dev"

// command runs one subcommand against the wired services
type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string, out io.Writer) error
}

var commands = map[string]command{
	"register":       {"Register a purchase order from a JSON file", runRegister},
	"receive":        {"Apply a delivery batch from a JSON file", runReceive},
	"show":           {"Print an order with its lines", runShow},
	"create-stock":   {"Add a stock catalog entry", runCreateStock},
	"stock":          {"Print a stock item with its journal", runStock},
	"receive-stock":  {"Add stock outside of any order", runReceiveStock},
	"dispatch":       {"Take stock out of an item", runDispatch},
	"register-asset": {"Enter an asset into the register", runRegisterAsset},
	"update-asset":   {"Change the register fields of an asset", runUpdateAsset},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	if len(argv) == 0 || argv[0] == "-h" || argv[0] == "help" {
		printUsage()
		return 2
	}
	if argv[0] == "version" {
		fmt.Println(version)
		return 0
	}
	cmd, ok := commands[argv[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", argv[0])
		printUsage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start", zap.Error(err))
		return 1
	}
	defer a.close(context.WithoutCancel(ctx))

	if err := cmd.run(ctx, a, argv[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		reportError(os.Stderr, err)
		return 1
	}
	return 0
}

func runRegister(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	file := fs.String("file", "", "order JSON file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req appprocurement.RegisterOrderRequest
	if err := decodeFile(*file, &req); err != nil {
		return err
	}
	number, err := a.registration.RegisterOrder(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]string{"order_number": number})
}

func runReceive(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("receive", flag.ContinueOnError)
	file := fs.String("file", "", "delivery batch JSON file, - for stdin")
	key := fs.String("key", "", "idempotency key, overrides the one in the file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req appprocurement.ReceiveRequest
	if err := decodeFile(*file, &req); err != nil {
		return err
	}
	if *key != "" {
		req.IdempotencyKey = *key
	}
	result, err := a.receipts.Receive(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

func runShow(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	order := fs.String("order", "", "order number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	view, err := a.queries.GetByOrderNumber(ctx, *order)
	if err != nil {
		return err
	}
	return writeJSON(out, view)
}

func runCreateStock(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-stock", flag.ContinueOnError)
	var req appinventory.CreateStockRequest
	fs.StringVar(&req.ItemName, "name", "", "item name")
	fs.StringVar(&req.ModelNumber, "model", "", "model number")
	fs.StringVar(&req.Manufacturer, "manufacturer", "", "manufacturer")
	fs.StringVar(&req.Category, "category", "", "category")
	fs.StringVar(&req.Location, "location", "", "storage location")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := a.stock.CreateStock(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, created)
}

func runStock(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stock", flag.ContinueOnError)
	item := fs.String("item", "", "item code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	detail, err := a.stock.GetStock(ctx, *item)
	if err != nil {
		return err
	}
	return writeJSON(out, detail)
}

func runReceiveStock(ctx context.Context, a *app, args []string, out io.Writer) error {
	req, err := parseMovement("receive-stock", args)
	if err != nil {
		return err
	}
	number, err := a.stock.ReceiveStock(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]string{"transaction_number": number})
}

func runDispatch(ctx context.Context, a *app, args []string, out io.Writer) error {
	req, err := parseMovement("dispatch", args)
	if err != nil {
		return err
	}
	number, err := a.stock.DispatchStock(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]string{"transaction_number": number})
}

func runRegisterAsset(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register-asset", flag.ContinueOnError)
	var req appasset.RegisterAssetRequest
	var price string
	fs.StringVar(&req.AssetName, "name", "", "asset name")
	fs.StringVar(&req.Category, "category", "", "category")
	fs.StringVar(&req.Supplier, "supplier", "-", "supplier, - when unknown")
	fs.StringVar(&req.SerialNumber, "serial", "", "serial number")
	fs.StringVar(&req.Manufacturer, "manufacturer", "", "manufacturer")
	fs.StringVar(&req.ModelNumber, "model", "", "model number")
	fs.StringVar(&price, "price", "0", "purchase price")
	fs.StringVar(&req.Location, "location", "", "installation location")
	fs.StringVar(&req.Remarks, "remarks", "", "remarks")
	fs.BoolVar(&req.CalibrationRequired, "calibration", false, "calibration is required")
	fs.StringVar(&req.LastCalibrationDate, "last-calibrated", "", "last calibration date, YYYY-MM-DD")
	fs.StringVar(&req.NextCalibrationDate, "next-calibration", "", "next calibration due date, YYYY-MM-DD")
	fs.StringVar(&req.Operator, "operator", os.Getenv("USER"), "operator name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return shared.NewValidationError("purchase_price", "must be a number")
	}
	req.PurchasePrice = p

	created, err := a.assets.RegisterAsset(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, created)
}

func runUpdateAsset(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("update-asset", flag.ContinueOnError)
	var req appasset.UpdateAssetRequest
	fs.StringVar(&req.AssetCode, "asset", "", "asset code")
	serial := fs.String("serial", "", "serial number")
	location := fs.String("location", "", "installation location")
	remarks := fs.String("remarks", "", "remarks")
	status := fs.String("status", "", "ORDERED, DELIVERED or REGISTERED")
	calibration := fs.Bool("calibration", false, "calibration is required")
	last := fs.String("last-calibrated", "", "last calibration date, empty to clear")
	next := fs.String("next-calibration", "", "next calibration due date, empty to clear")
	fs.StringVar(&req.Operator, "operator", os.Getenv("USER"), "operator name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// only flags given on the command line change the asset
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "serial":
			req.SerialNumber = serial
		case "location":
			req.Location = location
		case "remarks":
			req.Remarks = remarks
		case "status":
			req.Status = status
		case "calibration":
			req.CalibrationRequired = calibration
		case "last-calibrated":
			req.LastCalibrationDate = last
		case "next-calibration":
			req.NextCalibrationDate = next
		}
	})

	updated, err := a.assets.UpdateAsset(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(out, updated)
}

func parseMovement(name string, args []string) (appinventory.MovementRequest, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var req appinventory.MovementRequest
	var qty string
	fs.StringVar(&req.ItemCode, "item", "", "item code")
	fs.StringVar(&qty, "qty", "", "quantity")
	fs.StringVar(&req.Operator, "operator", os.Getenv("USER"), "operator name")
	fs.StringVar(&req.Remarks, "remarks", "", "remarks")
	if err := fs.Parse(args); err != nil {
		return req, err
	}

	q, err := decimal.NewFromString(qty)
	if err != nil {
		return req, shared.NewValidationError("quantity", "must be a number")
	}
	req.Quantity = q
	return req, nil
}

func decodeFile(path string, v any) error {
	if path == "" {
		return shared.NewValidationError("file", "is required")
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportError prints a failure as a JSON object carrying the domain error code
func reportError(w io.Writer, err error) {
	body := map[string]any{"error": err.Error()}
	if code := shared.CodeOf(err); code != "" {
		body["code"] = code
	}
	var ve *shared.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
	}
	_ = writeJSON(w, body)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Stockroom purchase order and stock tool

Usage:
  stockroom <command> [flags]

Commands:
  register -file order.json               Register a purchase order
  receive -file delivery.json [-key K]    Apply a delivery batch to an order
  show -order NO                          Print an order with its lines
  create-stock -name N [-model M] ...     Add a stock catalog entry
  stock -item CODE                        Print a stock item with its journal
  receive-stock -item CODE -qty N         Add stock outside of any order
  dispatch -item CODE -qty N              Take stock out of an item
  register-asset -name N -category C ...  Enter an asset into the register
  update-asset -asset CODE [-location L]  Change the register fields of an asset
  version                                 Print the build version

Configuration is read from config.toml and STOCKROOM_* environment variables,
for example STOCKROOM_DATABASE_DRIVER=sqlite STOCKROOM_DATABASE_PATH=stockroom.db.`)
}
