package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"dexops/internal/casper"
	"dexops/internal/dex"
	"dexops/internal/events"
	"dexops/internal/models"

	"github.com/urfave/cli/v2"
)

var pairCmd = &cli.Command{
	Name:      "pair",
	Usage:     "resolve the pair contract of a token pair and print its state",
	ArgsUsage: "<token-a> <token-b>",
	Action:    runPair,
}

var reservesCmd = &cli.Command{
	Name:      "reserves",
	Usage:     "print the reserves of a token pair, oriented to the argument order",
	ArgsUsage: "<token-in> <token-out>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "save",
			Usage: "record the observed reserves in the history database",
		},
	},
	Action: runReserves,
}

var quoteCmd = &cli.Command{
	Name:      "quote",
	Usage:     "compute the output amount of a swap against current reserves",
	ArgsUsage: "<token-in> <token-out> <amount-in>",
	Action:    runQuote,
}

var eventsCmd = &cli.Command{
	Name:      "events",
	Usage:     "decode and print the event log of a pair contract",
	ArgsUsage: "<pair-contract>",
	Action:    runEvents,
}

func queryService(c *cli.Context, wantArgs int) (*dex.Service, []casper.Identifier, error) {
	if c.Args().Len() < wantArgs {
		return nil, nil, fmt.Errorf("expected %d arguments, got %d", wantArgs, c.Args().Len())
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := newNodeClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	service, err := newDexService(cfg, client)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]casper.Identifier, wantArgs)
	for i := 0; i < wantArgs; i++ {
		ids[i], err = casper.ParseIdentifier(c.Args().Get(i))
		if err != nil {
			return nil, nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
	}

	return service, ids, nil
}

func runPair(c *cli.Context) error {
	service, ids, err := queryService(c, 2)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pair, found, err := service.FindPair(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no pair registered for this token pair")
	}

	state, err := service.State(ctx, pair)
	if err != nil {
		return err
	}

	fmt.Printf("pair:       %s\n", state.Pair)
	fmt.Printf("token0:     %s\n", state.Token0)
	fmt.Printf("token1:     %s\n", state.Token1)
	fmt.Printf("reserve0:   %s\n", state.Reserve0)
	fmt.Printf("reserve1:   %s\n", state.Reserve1)
	if state.BlockTimestampLast != 0 {
		fmt.Printf("updated:    %d\n", state.BlockTimestampLast)
	}
	fmt.Printf("state root: %s\n", state.StateRoot)
	return nil
}

func runReserves(c *cli.Context) error {
	service, ids, err := queryService(c, 2)
	if err != nil {
		return err
	}

	ctx := context.Background()
	reserveIn, reserveOut, err := service.ReservesFor(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", reserveIn, reserveOut)

	if c.Bool("save") {
		return saveSnapshot(ctx, service, ids[0], ids[1])
	}
	return nil
}

// saveSnapshot records the full pair state in the history database
func saveSnapshot(ctx context.Context, service *dex.Service, tokenA, tokenB casper.Identifier) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("--save requires DATABASE_URL")
	}
	defer repo.Close()

	pair, found, err := service.FindPair(ctx, tokenA, tokenB)
	if err != nil || !found {
		return fmt.Errorf("pair vanished between reads: %v", err)
	}
	state, err := service.State(ctx, pair)
	if err != nil {
		return err
	}

	return repo.SavePairSnapshot(ctx, &models.PairSnapshot{
		PairContract: state.Pair.String(),
		Token0:       state.Token0.String(),
		Token1:       state.Token1.String(),
		Reserve0:     state.Reserve0.String(),
		Reserve1:     state.Reserve1.String(),
		StateRoot:    state.StateRoot,
		ObservedAt:   time.Now().UTC(),
	})
}

func runQuote(c *cli.Context) error {
	service, ids, err := queryService(c, 2)
	if err != nil {
		return err
	}

	if c.Args().Len() < 3 {
		return fmt.Errorf("usage: dexops quote <token-in> <token-out> <amount-in>")
	}
	amountIn, ok := new(big.Int).SetString(c.Args().Get(2), 10)
	if !ok || amountIn.Sign() <= 0 {
		return fmt.Errorf("amount-in must be a positive decimal integer")
	}

	ctx := context.Background()
	reserveIn, reserveOut, err := service.ReservesFor(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}

	amountOut, err := dex.GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return err
	}

	fmt.Println(amountOut)
	return nil
}

func runEvents(c *cli.Context) error {
	service, ids, err := queryService(c, 1)
	if err != nil {
		return err
	}

	records, gaps, err := service.Events(context.Background(), ids[0])
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("#%d %s %v\n", rec.Sequence, rec.Name, renderFields(rec))
	}
	for _, gap := range gaps {
		fmt.Printf("gap at index %d: %v\n", gap.Index, gap.Err)
	}
	return nil
}

// renderFields formats a record's fields per its schema
func renderFields(rec events.Record) []string {
	schema, _ := events.KnownSchema(rec.Name)
	out := make([]string, 0, len(rec.Fields))
	for i, v := range rec.Fields {
		if i >= len(schema.Fields) {
			break
		}
		switch schema.Fields[i] {
		case events.FieldIdentifier:
			out = append(out, v.Identifier.String())
		case events.FieldUint:
			out = append(out, v.Uint.String())
		case events.FieldU64:
			out = append(out, fmt.Sprintf("%d", v.U64))
		case events.FieldU32:
			out = append(out, fmt.Sprintf("%d", v.U32))
		case events.FieldBool:
			out = append(out, fmt.Sprintf("%t", v.Bool))
		case events.FieldString:
			out = append(out, v.String)
		}
	}
	return out
}
