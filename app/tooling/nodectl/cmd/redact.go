package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/spf13/cobra"
)

var (
	redactIndex uint64
	redactData  string
	trapdoorKey string
)

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Rewrite the data of a block without changing its hash",
	Run: func(cmd *cobra.Command, args []string) {
		payload := struct {
			Index       uint64          `json:"index"`
			Data        json.RawMessage `json:"data"`
			TrapdoorKey string          `json:"trapdoor_key"`
		}{
			Index:       redactIndex,
			Data:        parseTransaction(redactData),
			TrapdoorKey: trapdoorKey,
		}

		data, err := call(http.MethodPost, "/v1/chain/redact", payload)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(pretty(data))
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a trapdoor key pair for the chameleon hash strategy",
	Run: func(cmd *cobra.Command, args []string) {
		trapdoor, public, err := digest.GenerateChameleonKey()
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("trapdoor key:", trapdoor)
		fmt.Println("public key:  ", public)
	},
}

func init() {
	rootCmd.AddCommand(redactCmd, keygenCmd)
	redactCmd.Flags().Uint64VarP(&redactIndex, "index", "i", 0, "Index of the block to redact.")
	redactCmd.Flags().StringVarP(&redactData, "data", "d", "[]", "New data of the block, JSON or plain text.")
	redactCmd.Flags().StringVarP(&trapdoorKey, "key", "k", "", "Trapdoor key of the chameleon hash.")
	redactCmd.MarkFlagRequired("key")
}
