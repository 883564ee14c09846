// Command shuffledemo runs one shuffle round entirely in one process,
// using transport.Local to stand in for the network, and prints the
// contributions recovered after the round completes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.dedis.ch/shuffleround/blame"
	"go.dedis.ch/shuffleround/crypto"
	"go.dedis.ch/shuffleround/group"
	"go.dedis.ch/shuffleround/onion"
	"go.dedis.ch/shuffleround/round"
	"go.dedis.ch/shuffleround/transport"
)

var (
	numNodes  int
	blockSize int
)

func main() {
	cmd := &cobra.Command{
		Use:   "shuffledemo",
		Short: "Run one shuffle round and print the recovered contributions",
		RunE:  run,
	}
	cmd.Flags().IntVar(&numNodes, "nodes", 5, "number of participants")
	cmd.Flags().IntVar(&blockSize, "block-size", 64, "maximum contribution size in bytes")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if numNodes < 3 {
		return fmt.Errorf("shuffledemo: need at least 3 nodes, got %d", numNodes)
	}

	factory := crypto.NewKyberFactory()
	ids := make([]group.Identity, numNodes)
	signers := make([]crypto.PrivateKey, numNodes)
	keys := make(map[group.Identity]crypto.PublicKey, numNodes)

	for i := 0; i < numNodes; i++ {
		priv, err := factory.Generate()
		if err != nil {
			return fmt.Errorf("generating identity key for node %d: %w", i, err)
		}
		id := group.Identity(fmt.Sprintf("node-%d", i))
		ids[i] = id
		signers[i] = priv
		keys[id] = priv.Public()
	}

	net := transport.NewNetwork()
	roundID := []byte("shuffledemo-round")

	rounds := make([]*round.Round, numNodes)
	results := make([][]byte, numNodes)

	for i := 0; i < numNodes; i++ {
		idx := i
		view := group.NewStatic(ids, keys, idx)
		local := net.Join(ids[idx])
		// Every node recovers the same contributions in the same order, so
		// each node's k-th push fills results[k].
		pushed := 0
		local.OnPush(func(data []byte, _ group.Identity) {
			results[pushed] = data
			pushed++
		})

		deps := round.Deps{
			Group:     view,
			Transport: local,
			Onion:     onion.New(),
			Keys:      factory,
			Hashes:    crypto.Sha256HashFactory{},
			Signer:    signers[idx],
			Replayer:  blame.Reference{},
		}
		id := round.ID{RoundID: roundID, Local: []byte(ids[idx])}
		payload := []byte(fmt.Sprintf("payload from %s", ids[idx]))

		r, err := round.New(round.Config{BlockSize: blockSize}, id, deps, payload)
		if err != nil {
			return fmt.Errorf("constructing round for node %d: %w", idx, err)
		}
		rounds[idx] = r
	}

	for i, r := range rounds {
		if err := r.Start(); err != nil {
			return fmt.Errorf("starting node %d: %w", i, err)
		}
	}

	ok := true
	for i, r := range rounds {
		switch {
		case !r.Finished():
			fmt.Printf("node %d: round did not finish\n", i)
			ok = false
		case !r.Successful():
			fmt.Printf("node %d: round failed, bad members: %v\n", i, r.BadMembers())
			ok = false
		}
	}
	if !ok {
		return fmt.Errorf("shuffledemo: round did not complete successfully")
	}

	fmt.Println("recovered contributions:")
	for i, data := range results {
		fmt.Printf("  slot %d: %q\n", i, data)
	}
	return nil
}
