// zfctl is the reference client: it keeps the device identity key, the
// conversation keyring and the session record under a local state directory
// and speaks the signed-request protocol against a zeroforums server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"zeroforums/internal/convkey"
	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/envelope"
	"zeroforums/internal/identity"
	"zeroforums/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "captcha":
		err = runCaptcha(args)
	case "register":
		err = runRegister(args)
	case "login":
		err = runLogin(args)
	case "logout":
		err = runLogout(args)
	case "wipe":
		err = runWipe(args)
	case "status":
		err = runStatus(args)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  captcha    Fetch a challenge token")
	fmt.Fprintln(os.Stderr, "  register   Create an account and a device identity key")
	fmt.Fprintln(os.Stderr, "  login      Authenticate and persist a session")
	fmt.Fprintln(os.Stderr, "  logout     Revoke the session and clear local state")
	fmt.Fprintln(os.Stderr, "  wipe       Destroy the account and all local key material")
	fmt.Fprintln(os.Stderr, "  status     Show the persisted session state")
	os.Exit(2)
}

type commonOpts struct {
	baseURL  string
	stateDir string
}

func commonFlags(fs *flag.FlagSet) *commonOpts {
	o := &commonOpts{}
	fs.StringVar(&o.baseURL, "base-url", getenv("ZFCTL_BASE_URL", "http://localhost:8080"), "server base URL")
	fs.StringVar(&o.stateDir, "state-dir", getenv("ZFCTL_STATE_DIR", defaultStateDir()), "local state directory")
	return o
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zeroforums"
	}
	return filepath.Join(home, ".zeroforums")
}

// newManager assembles the client stack over the state directory.
func newManager(o *commonOpts) (*session.Manager, error) {
	if err := os.MkdirAll(o.stateDir, 0o700); err != nil {
		return nil, err
	}
	ident := identity.NewManager(
		filepath.Join(o.stateDir, "identity.keystore"),
		[]byte(getenv("ZFCTL_PASSPHRASE", "")),
	)
	keys, err := convkey.Open(filepath.Join(o.stateDir, "keyring.db"))
	if err != nil {
		return nil, err
	}
	api := session.NewClient(o.baseURL, deviceFingerprint())
	return session.NewManager(api, ident, keys, filepath.Join(o.stateDir, "session.json")), nil
}

// deviceFingerprint hashes hostname, OS and timezone. These inputs are weak
// device binders; the fingerprint narrows rate-limit and lockout keys, it does
// not authenticate the device.
func deviceFingerprint() string {
	host, _ := os.Hostname()
	zone, _ := time.Now().Zone()
	return cryptoutil.Fingerprint([]byte(strings.Join([]string{host, runtime.GOOS, zone}, "\x00")))
}

func runCaptcha(args []string) error {
	fs := flag.NewFlagSet("captcha", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	api := session.NewClient(o.baseURL, deviceFingerprint())
	resp, err := api.FetchCaptcha(context.Background())
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := commonFlags(fs)
	username := fs.String("username", "", "account name (3-50 chars: letters, digits, underscore)")
	captchaToken := fs.String("captcha-token", "", "token from 'zfctl captcha'")
	captchaAnswer := fs.String("captcha-answer", "", "challenge answer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("username is required")
	}

	mgr, err := newManager(o)
	if err != nil {
		return err
	}
	if err := mgr.Register(context.Background(), *username, nil, envelope.FileMeta{}, *captchaToken, *captchaAnswer); err != nil {
		return err
	}
	return printJSON(mgr.Current())
}

func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := commonFlags(fs)
	username := fs.String("username", "", "account name")
	captchaToken := fs.String("captcha-token", "", "token from 'zfctl captcha'")
	captchaAnswer := fs.String("captcha-answer", "", "challenge answer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("username is required")
	}

	mgr, err := newManager(o)
	if err != nil {
		return err
	}
	if err := mgr.Login(context.Background(), *username, *captchaToken, *captchaAnswer); err != nil {
		return err
	}
	return printJSON(mgr.Current())
}

func runLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, err := newManager(o)
	if err != nil {
		return err
	}
	if _, err := mgr.CheckSession(context.Background()); err != nil {
		return err
	}
	if err := mgr.Logout(context.Background()); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func runWipe(args []string) error {
	fs := flag.NewFlagSet("wipe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := commonFlags(fs)
	confirm := fs.String("confirm", "", fmt.Sprintf("must be exactly %q", session.WipeConfirmationPhrase))
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, err := newManager(o)
	if err != nil {
		return err
	}
	if _, err := mgr.CheckSession(context.Background()); err != nil {
		return err
	}
	if err := mgr.WipeAccount(context.Background(), *confirm); err != nil {
		return err
	}
	fmt.Println("account wiped")
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, err := newManager(o)
	if err != nil {
		return err
	}
	state, err := mgr.CheckSession(context.Background())
	if err != nil {
		return err
	}
	out := struct {
		State   string          `json:"state"`
		Session *session.Record `json:"session,omitempty"`
	}{State: state.String(), Session: mgr.Current()}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
