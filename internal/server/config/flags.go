package config

import (
	"flag"
	"os"
	"time"

	"github.com/veronewra/openverse/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   PostgreSQL DSN
//	-r string   Redis address (host:port)
//	-s string   JWT HMAC secret key
//	-u string   public base URL used in verification links
//	-t int      access token validity, hours
//	-v int      verification code validity, hours
//	-o          fail open when the counter store is unreachable
//	-m string   SMTP address (host:port)
//	-f string   sender address for verification emails
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in hours and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-r", "-s", "-u", "-t", "-v", "-o", "-m", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Hours()), "access_token_validity_duration (in hours)")
	verificationCodeValidityDuration := fs.Int("v", int(config.VerificationCodeValidityDuration.Hours()), "verification_code_validity_duration (in hours)")

	fs.BoolVar(&config.ThrottleFailOpen, "o", config.ThrottleFailOpen, "allow requests when the counter store is unreachable")
	fs.StringVar(&config.SMTPAddr, "m", config.SMTPAddr, "SMTP address")
	fs.StringVar(&config.EmailSender, "f", config.EmailSender, "verification email sender")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Hour
	config.VerificationCodeValidityDuration = time.Duration(*verificationCodeValidityDuration) * time.Hour
}
