package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

func printDefaultTable(cmd *cobra.Command, args []string) error {
	data, err := policy.DefaultTable().MarshalFile("yaml")
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func checkTable(cmd *cobra.Command, args []string) error {
	table, err := policy.LoadTable(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: OK (%d states)\n", args[0], len(table))
	for _, key := range table.Keys() {
		fmt.Printf("  %-16s %v\n", key, table[key])
	}
	return nil
}
