// Command vapidkeys prints a fresh VAPID key pair in .env format.
package main

import (
	"fmt"
	"os"
	"storefront-fulfillment/internal/client"
)

func main() {
	privateKey, publicKey, err := client.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("PUSH_VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("PUSH_VAPID_PRIVATE_KEY=%s\n", privateKey)
}
