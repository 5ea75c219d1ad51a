package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/uhyunpark/frmdex/pkg/crypto"
	"github.com/uhyunpark/frmdex/pkg/order"
	"github.com/uhyunpark/frmdex/pkg/transaction"
)

func main() {
	seedHex := flag.String("seed", "", "32-byte ed25519 seed in hex (random key if empty)")
	orderID := flag.Uint64("id", 1, "order id")
	sideName := flag.String("side", "Buy", "Buy or Sell")
	price := flag.Uint64("price", 100, "price in quote base units")
	qty := flag.Uint64("qty", 500, "quantity in base units")
	expiresIn := flag.Duration("expires-in", time.Hour, "expiry offset from now")
	expiryMs := flag.Uint64("expiry", 0, "absolute expiry in unix milliseconds (overrides -expires-in)")
	withMessage := flag.Bool("message", false, "include the signed message in the submission")
	verifyPath := flag.String("verify", "", "verify a submission JSON file ('-' for stdin) instead of signing")
	flag.Parse()

	if *verifyPath != "" {
		if err := verify(*verifyPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Step 1: Generate or load key
	var signer *crypto.Signer
	var err error
	if *seedHex == "" {
		signer, err = crypto.GenerateKey()
	} else {
		signer, err = crypto.FromSeedHex(*seedHex)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Owner: %s\n", signer.OwnerBase58())
	if *seedHex == "" {
		fmt.Printf("Seed: %s (KEEP SECRET!)\n", signer.SeedHex())
	}
	fmt.Println()

	// Step 2: Create intent
	side, err := order.ParseSide(*sideName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	expiry := *expiryMs
	if expiry == 0 {
		expiry = order.ExpiryAfter(time.Now(), *expiresIn)
	}
	intent, err := order.NewOrderIntent(order.IntentFields{
		OrderID:  *orderID,
		Owner:    signer.Owner(),
		Side:     side,
		Price:    *price,
		Quantity: *qty,
		Expiry:   expiry,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Order ID: %d\n", intent.OrderID())
	fmt.Printf("  Side: %s\n", intent.Side())
	fmt.Printf("  Price: %d\n", intent.Price())
	fmt.Printf("  Quantity: %d\n", intent.Quantity())
	fmt.Printf("  Expiry: %d (%s)\n", intent.Expiry(), intent.ExpiryTime().UTC().Format(time.RFC3339))
	fmt.Printf("  Binary: %x\n", intent.Encode())
	fmt.Printf("  Hash: %s\n\n", intent.Hash().Hex())

	// Step 3: Sign the canonical message
	fmt.Printf("Message: %s\n\n", intent.CanonicalMessage())
	so, err := transaction.Sign(signer, intent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signature: %s\n\n", hex.EncodeToString(so.Signature))

	// Step 4: Build the submission
	sub, err := transaction.NewSubmission(so, *withMessage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	subJSON, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	// Step 5: Verify locally before printing
	if err := transaction.NewVerifier().VerifySignedOrder(so); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Signature INVALID: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Signature VALID")
	fmt.Println()

	fmt.Println("To submit this order to the sequencer:")
	fmt.Println("  POST http://localhost:8080/place_order")
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(subJSON))
}

func verify(path string) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	sub, err := transaction.ParseSubmission(data)
	if err != nil {
		return fmt.Errorf("%s: %w", transaction.ErrorKind(err), err)
	}
	so, err := transaction.NewVerifier().Verify(sub)
	if err != nil {
		return fmt.Errorf("%s: %w", transaction.ErrorKind(err), err)
	}

	fmt.Println("✓ Signature VALID")
	fmt.Printf("  Owner: %s\n", so.Intent.Owner())
	fmt.Printf("  Order ID: %d\n", so.Intent.OrderID())
	fmt.Printf("  Hash: %s\n", so.Intent.Hash().Hex())
	return nil
}
