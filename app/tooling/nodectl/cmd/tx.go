package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx <transaction>",
	Short: "Submit a transaction, any JSON value or plain text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := struct {
			Transaction json.RawMessage `json:"transaction"`
		}{
			Transaction: parseTransaction(args[0]),
		}

		data, err := call(http.MethodPost, "/v1/tx/submit", payload)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "View the transactions waiting to be mined",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := call(http.MethodGet, "/v1/tx/pending", nil)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

func init() {
	rootCmd.AddCommand(txCmd, pendingCmd)
}
