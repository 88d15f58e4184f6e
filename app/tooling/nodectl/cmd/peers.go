package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "View the known peers of the node",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := call(http.MethodGet, "/v1/peers", nil)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <host:port>",
	Short: "Connect the node to a peer",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := struct {
			Host string `json:"host"`
		}{
			Host: args[0],
		}

		data, err := call(http.MethodPost, "/v1/peers", payload)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

func init() {
	rootCmd.AddCommand(peersCmd)
	peersCmd.AddCommand(connectCmd)
}
