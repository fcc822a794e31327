package main

import (
	"encoding/hex"
	"fmt"

	"dexops/internal/casper"
	"dexops/internal/dex"
	"dexops/internal/schema"

	"github.com/urfave/cli/v2"
)

// The key command exposes key derivation for debugging against casper-client:
// derive the dictionary item key of any field and query it by hand.
var keyCmd = &cli.Command{
	Name:  "key",
	Usage: "derive dictionary item keys and parse identifiers",
	Subcommands: []*cli.Command{
		{
			Name:      "field",
			Usage:     "derive the item key of a pair contract field",
			ArgsUsage: "<field-name>",
			Action:    runFieldKey,
		},
		{
			Name:      "pair",
			Usage:     "derive the factory registry item key of a token pair",
			ArgsUsage: "<token-a> <token-b>",
			Action:    runPairKey,
		},
		{
			Name:      "parse",
			Usage:     "parse an identifier and print its tagged hex form",
			ArgsUsage: "<identifier>",
			Action:    runParseKey,
		},
	},
}

func runFieldKey(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: dexops key field <field-name>")
	}

	layout := schema.PairLayout()
	field, ok := layout.Field(c.Args().Get(0))
	if !ok {
		return fmt.Errorf("unknown pair field %q", c.Args().Get(0))
	}
	if field.Kind == schema.Mapping {
		return fmt.Errorf("%s is a mapping field; its key needs a lookup key", field.Name)
	}

	key := casper.PlainKey(field.Index)
	fmt.Printf("index: %d\n", field.Index)
	fmt.Printf("key:   %s\n", key.Hex())
	return nil
}

func runPairKey(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: dexops key pair <token-a> <token-b>")
	}

	tokenA, err := casper.ParseIdentifier(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("token-a: %w", err)
	}
	tokenB, err := casper.ParseIdentifier(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("token-b: %w", err)
	}

	layout := schema.FactoryLayout()
	field, ok := layout.Field("pairs")
	if !ok {
		return fmt.Errorf("factory layout has no pairs field")
	}

	key := casper.MappingKey(field.Index, dex.PairLookupKey(tokenA, tokenB))
	fmt.Printf("index: %d\n", field.Index)
	fmt.Printf("key:   %s\n", key.Hex())
	return nil
}

func runParseKey(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: dexops key parse <identifier>")
	}

	id, err := casper.ParseIdentifier(c.Args().Get(0))
	if err != nil {
		return err
	}

	fmt.Printf("display: %s\n", id.String())
	fmt.Printf("tagged:  %s\n", hex.EncodeToString(id.Encode()))
	return nil
}
