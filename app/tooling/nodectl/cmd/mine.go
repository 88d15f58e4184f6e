package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	rewardAddress string
	background    bool
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine the pending transactions into a new block",
	Run: func(cmd *cobra.Command, args []string) {
		if background {
			data, err := call(http.MethodGet, "/v1/mining/signal", nil)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(pretty(data))
			return
		}

		payload := struct {
			RewardAddress string `json:"reward_address"`
		}{
			RewardAddress: rewardAddress,
		}

		data, err := call(http.MethodPost, "/v1/mining/mine", payload)
		if err != nil {
			log.Fatal(err)
		}

		if data == nil {
			fmt.Println("no work")
			return
		}

		fmt.Println(pretty(data))
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVarP(&rewardAddress, "reward", "r", "", "Address credited for the block, the node's beneficiary when empty.")
	mineCmd.Flags().BoolVarP(&background, "background", "b", false, "Signal the node's worker to mine and return.")
}
