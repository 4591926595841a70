package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/relayforge/streamproxy/pkg/cli"
	"github.com/relayforge/streamproxy/pkg/envelope"
)

var generateURLFlags struct {
	base        string
	endpoint    string
	destination string
	apiPassword string
	expiresIn   time.Duration
	ip          string
}

var generateURLCmd = &cobra.Command{
	Use:   "generate-url",
	Short: "Build a token or signed-query proxy URL without a running server",
	Long: `Build a proxy URL for --destination the same way POST /proxy/generate_url
does, evaluated locally against --api-password rather than over HTTP.

Passing --api-password produces a token-mode URL (the destination and
headers are encrypted); omitting it produces a signed-query URL (the
destination and headers appear as plain query parameters, bound by the
gate's own api_password check at request time).

Examples:
  # Signed-query URL
  streamproxy generate-url --destination https://example.com/a.mp4

  # Token URL, expiring in 1 hour, bound to a client IP
  streamproxy generate-url --destination https://example.com/a.mp4 \
    --api-password s3cret --expires-in 1h --ip 203.0.113.7`,
	RunE: runGenerateURL,
}

func init() {
	rootCmd.AddCommand(generateURLCmd)

	generateURLCmd.Flags().StringVar(&generateURLFlags.base, "base", "http://localhost:8888", "proxy base URL")
	generateURLCmd.Flags().StringVar(&generateURLFlags.endpoint, "endpoint", "/proxy/stream", "proxy endpoint path")
	generateURLCmd.Flags().StringVar(&generateURLFlags.destination, "destination", "", "destination URL to relay (required)")
	generateURLCmd.Flags().StringVar(&generateURLFlags.apiPassword, "api-password", "", "api_password; selects token mode when set")
	generateURLCmd.Flags().DurationVar(&generateURLFlags.expiresIn, "expires-in", 0, "token expiry, token mode only (0 = no expiry)")
	generateURLCmd.Flags().StringVar(&generateURLFlags.ip, "ip", "", "bind the token to this client IP, token mode only")
}

func runGenerateURL(cmd *cobra.Command, args []string) error {
	if generateURLFlags.destination == "" {
		return cli.NewConfigError("destination", "--destination is required")
	}

	base := strings.TrimSuffix(generateURLFlags.base, "/") + "/" + strings.TrimPrefix(generateURLFlags.endpoint, "/")

	var generated string
	if generateURLFlags.apiPassword != "" {
		u, err := buildTokenURL(base)
		if err != nil {
			return cli.NewCommandError("generate-url", err)
		}
		generated = u
	} else {
		generated = buildSignedQueryURL(base)
	}

	fmt.Println(generated)
	return nil
}

func buildTokenURL(base string) (string, error) {
	data := &envelope.ProxyData{Destination: generateURLFlags.destination}
	if generateURLFlags.expiresIn > 0 {
		exp := time.Now().Add(generateURLFlags.expiresIn).Unix()
		data.Exp = &exp
	}
	if generateURLFlags.ip != "" {
		ip := generateURLFlags.ip
		data.IP = &ip
	}

	codec, err := envelope.New([]byte(generateURLFlags.apiPassword))
	if err != nil {
		return "", fmt.Errorf("build codec: %w", err)
	}
	token, err := codec.Encrypt(data)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	q := url.Values{}
	q.Set("token", token)
	return base + "?" + q.Encode(), nil
}

func buildSignedQueryURL(base string) string {
	q := url.Values{}
	q.Set("d", generateURLFlags.destination)
	return base + "?" + q.Encode()
}
