// Program yt-transcript lists and fetches YouTube video transcripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creachadair/atomicfile"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-transcript/formatters"
	"github.com/nijaru/yt-transcript/transcript"
)

var (
	listTranscripts        = flag.Bool("list-transcripts", false, "List the available transcripts instead of fetching one")
	languages              = flag.String("languages", "en", "Language codes in descending priority, space or comma separated")
	excludeGenerated       = flag.Bool("exclude-generated", false, "Only consider manually created transcripts")
	excludeManuallyCreated = flag.Bool("exclude-manually-created", false, "Only consider generated transcripts")
	format                 = flag.String("format", "pretty", "Output format: "+strings.Join(formatters.Names(), ", "))
	translate              = flag.String("translate", "", "Translate the transcript to this language code")
	preserveFormatting     = flag.Bool("preserve-formatting", false, "Keep HTML formatting tags such as <i> and <b>")
	webshareUsername       = flag.String("webshare-proxy-username", "", "Webshare rotating residential proxy username")
	websharePassword       = flag.String("webshare-proxy-password", "", "Webshare rotating residential proxy password")
	httpProxy              = flag.String("http-proxy", "", "Proxy URL for http requests")
	httpsProxy             = flag.String("https-proxy", "", "Proxy URL for https requests")
	clientVersion          = flag.String("client-version", "", "Override the player API client version")
	timeout                = flag.Duration("timeout", 30*time.Second, "Timeout of each request to YouTube")
	output                 = flag.String("output", "", "Write the result to this file instead of stdout")
	logLevel               = flag.String("log-level", "warn", "Log level")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: %[1]s [options] <video-id>...

Fetch transcripts of YouTube videos. Pass video ids, not URLs: for
https://www.youtube.com/watch?v=1234 the id is 1234.

Transcripts are looked up in the order given by -languages; for each
language a manually created transcript wins over a generated one.
With -list-transcripts the available transcripts are printed instead.

Options:
`, filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid -log-level %q: %v", *logLevel, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	if *timeout <= 0 {
		logrus.Fatalf("Invalid -timeout %v: must be positive", *timeout)
	}

	proxy, err := proxyConfig()
	if err != nil {
		logrus.Fatalf("Invalid proxy settings: %v", err)
	}
	api := transcript.New(
		transcript.WithHTTPClient(newHTTPClient(*timeout)),
		transcript.WithProxyConfig(proxy),
		transcript.WithClientVersion(*clientVersion),
	)

	opts := runOptions{
		videoIDs:               flag.Args(),
		listTranscripts:        *listTranscripts,
		languages:              splitLanguages(*languages),
		excludeGenerated:       *excludeGenerated,
		excludeManuallyCreated: *excludeManuallyCreated,
		format:                 *format,
		translate:              *translate,
		preserveFormatting:     *preserveFormatting,
	}
	text, ok := run(context.Background(), api, opts)

	if err := writeOutput(*output, text); err != nil {
		logrus.Fatalf("Writing output: %v", err)
	}
	if !ok {
		os.Exit(1)
	}
}

// proxyConfig returns nil when no proxy flag is set. Webshare wins over the
// generic proxy URLs.
func proxyConfig() (transcript.ProxyConfig, error) {
	if *webshareUsername != "" || *websharePassword != "" {
		if *webshareUsername == "" || *websharePassword == "" {
			return nil, fmt.Errorf("both -webshare-proxy-username and -webshare-proxy-password are required")
		}
		return transcript.NewWebshareProxyConfig(*webshareUsername, *websharePassword), nil
	}
	if *httpProxy != "" || *httpsProxy != "" {
		pc, err := transcript.NewGenericProxyConfig(*httpProxy, *httpsProxy)
		if err != nil {
			return nil, err
		}
		return pc, nil
	}
	return nil, nil
}

// newHTTPClient bounds every request, since the CLI runs without a context
// deadline.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Println(text)
		return err
	}
	f, err := atomicfile.New(path, 0644)
	if err != nil {
		return err
	}
	defer f.Cancel()
	if _, err := fmt.Fprintln(f, text); err != nil {
		return err
	}
	return f.Close()
}
