package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var tipOnly bool

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "View the chain of the node",
	Run: func(cmd *cobra.Command, args []string) {
		path := "/v1/chain"
		if tipOnly {
			path = "/v1/chain/tip"
		}

		data, err := call(http.MethodGet, path, nil)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

var validCmd = &cobra.Command{
	Use:   "valid",
	Short: "Check the chain of the node is valid",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := call(http.MethodGet, "/v1/chain/valid", nil)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "Broadcast the tip of the chain to the peers",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := call(http.MethodPost, "/v1/chain/broadcast", nil)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Adopt the longest valid chain of the peers",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := call(http.MethodPost, "/v1/chain/sync", nil)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

func init() {
	rootCmd.AddCommand(chainCmd, validCmd, broadcastCmd, syncCmd)
	chainCmd.Flags().BoolVar(&tipOnly, "tip", false, "Only show the last block.")
}
