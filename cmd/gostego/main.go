// GoStego — hide and recover text watermarks in image pixels.
//
// Usage:
//
//	gostego embed -i <image> -o <out.png> -t <text> [-p <password> | -P]
//	gostego extract -i <image> [-p <password> | -P]
//	gostego capacity -i <image>
//	gostego cover -o <out.png> [options]
//	gostego scan [-p <password>] [-j <n>] <image>...
//	gostego env
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/xob0t/GoStego/internal/config"
	"github.com/xob0t/GoStego/internal/logging"
	"github.com/xob0t/GoStego/pkg/cover"
	"github.com/xob0t/GoStego/pkg/imageio"
	"github.com/xob0t/GoStego/pkg/watermark"
)

const version = "0.1.0"

var log = logging.Std

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		fatal(err)
	}
	log.SetLevel(logging.ParseLevel(cfg.LogLevel))

	args := os.Args[2:]
	switch os.Args[1] {
	case "embed", "hide":
		err = runEmbed(cfg, args)
	case "extract", "reveal":
		err = runExtract(cfg, args)
	case "capacity", "cap":
		err = runCapacity(cfg, args)
	case "cover":
		err = runCover(cfg, args)
	case "scan":
		err = runScan(cfg, args, os.Stdout)
	case "env":
		fmt.Println("environment variables that configure gostego:")
		fmt.Println()
		config.Usage(os.Stdout)
		fmt.Println()
		config.PrintEnv(cfg, os.Stdout)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func runEmbed(cfg *config.C, args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)

	var (
		input    string
		output   string
		text     string
		textFile string
		password string
		prompt   bool
	)

	fs.StringVar(&input, "i", "", "Input image")
	fs.StringVar(&output, "o", "", "Output image (.png, .bmp or .tiff)")
	fs.StringVar(&text, "t", "", "Watermark text")
	fs.StringVar(&textFile, "f", "", "Read watermark text from file")
	fs.StringVar(&password, "p", "", "Password (empty = no encryption)")
	fs.BoolVar(&prompt, "P", false, "Prompt for the password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if input == "" || output == "" {
		return fmt.Errorf("-i and -o are required")
	}
	if !imageio.IsLossless(filepath.Ext(output)) {
		return fmt.Errorf("output %s: %w", output, imageio.ErrLossyFormat)
	}

	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		text = strings.TrimRight(string(data), "\r\n")
	}

	if prompt {
		var err error
		if password, err = readPassword("Password: "); err != nil {
			return err
		}
	}

	img, format, err := imageio.Load(input, cfg.MaxFileSize)
	if err != nil {
		return err
	}
	log.Debugf("loaded %s (%s, %dx%d)", input, format, img.Bounds().Dx(), img.Bounds().Dy())
	if format == "jpeg" || format == "webp" || format == "gif" {
		log.Warnf("%s is %s; the watermark is written to a lossless copy", input, format)
	}

	env, err := watermark.Embed(img.Pix, text, password)
	if err != nil {
		if errors.Is(err, watermark.ErrCapacityExceeded) {
			return fmt.Errorf("%w; use a larger image or a shorter text", err)
		}
		return err
	}
	log.Dump("envelope", env)

	if err := imageio.Save(output, img); err != nil {
		return err
	}

	if env.Encrypted {
		fmt.Printf("Embedded password-protected watermark: %s\n", output)
	} else {
		fmt.Printf("Embedded watermark: %s\n", output)
	}
	return nil
}

func runExtract(cfg *config.C, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)

	var (
		input    string
		password string
		prompt   bool
	)

	fs.StringVar(&input, "i", "", "Watermarked image")
	fs.StringVar(&password, "p", "", "Password for encrypted watermarks")
	fs.BoolVar(&prompt, "P", false, "Prompt for the password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if input == "" {
		return fmt.Errorf("-i is required")
	}

	img, _, err := imageio.Load(input, cfg.MaxFileSize)
	if err != nil {
		return err
	}

	if prompt {
		if password, err = readPassword("Password: "); err != nil {
			return err
		}
	}

	res, err := watermark.Extract(img.Pix, password)
	switch {
	case errors.Is(err, watermark.ErrPasswordRequired):
		return fmt.Errorf("this watermark is encrypted; pass -p or -P")
	case errors.Is(err, watermark.ErrWrongPassword):
		return fmt.Errorf("incorrect password, could not decrypt watermark")
	case errors.Is(err, watermark.ErrNoValidPayload):
		log.Debugf("extract %s: %v", input, err)
		return fmt.Errorf("no valid watermark found in %s", input)
	case err != nil:
		return err
	}

	if res.Encrypted {
		log.Infof("watermark decrypted")
	}
	fmt.Println(res.Message)
	return nil
}

func runCapacity(cfg *config.C, args []string) error {
	fs := flag.NewFlagSet("capacity", flag.ExitOnError)
	var input string
	fs.StringVar(&input, "i", "", "Image to inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" && fs.NArg() > 0 {
		input = fs.Arg(0)
	}
	if input == "" {
		return fmt.Errorf("-i is required")
	}

	fi, err := os.Stat(input)
	if err != nil {
		return err
	}
	img, format, err := imageio.Load(input, cfg.MaxFileSize)
	if err != nil {
		return err
	}

	info := watermark.Probe(img.Pix)
	b := img.Bounds()
	fmt.Printf("File:        %s (%s, %s)\n", input, format, humanize.Bytes(uint64(fi.Size())))
	fmt.Printf("Dimensions:  %dx%d (%s pixels)\n", b.Dx(), b.Dy(), humanize.Comma(int64(b.Dx()*b.Dy())))
	fmt.Printf("Capacity:    %s bits\n", humanize.Comma(int64(info.CapacityBits)))
	fmt.Printf("Max message: %s characters\n", humanize.Comma(int64(info.MaxMessage)))
	switch {
	case !info.HasPayload():
		fmt.Println("Watermark:   none")
	case info.Encrypted:
		fmt.Printf("Watermark:   encrypted, %d characters\n", info.Declared)
	default:
		fmt.Printf("Watermark:   plain, %d characters\n", info.Declared)
	}
	return nil
}

func runCover(cfg *config.C, args []string) error {
	fs := flag.NewFlagSet("cover", flag.ExitOnError)

	var (
		output   string
		width    int
		height   int
		color    string
		noise    int
		caption  string
		fontPath string
		fontSize float64
		forChars int
	)

	fs.StringVar(&output, "o", "", "Output file (.png, .bmp or .tiff)")
	fs.IntVar(&width, "w", 1280, "Width in pixels")
	fs.IntVar(&height, "h", 720, "Height in pixels")
	fs.StringVar(&color, "color", "random", "Background color: hex or 'random'")
	fs.IntVar(&noise, "noise", 0, "Per-sample noise amplitude (0-127)")
	fs.StringVar(&caption, "caption", "", "Caption text")
	fs.StringVar(&fontPath, "font", cfg.FontPath, "Caption TTF font")
	fs.Float64Var(&fontSize, "size", 24, "Caption font size in points")
	fs.IntVar(&forChars, "for", 0, "Size the cover to fit a message of N characters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}
	if forChars > 0 {
		side := cover.SizeFor(forChars)
		width, height = side, side
	}

	img, err := cover.New(cover.Config{
		Width:    width,
		Height:   height,
		Color:    color,
		Noise:    noise,
		Caption:  caption,
		FontPath: fontPath,
		FontSize: fontSize,
	})
	if err != nil {
		return err
	}

	if err := imageio.Save(output, img); err != nil {
		return err
	}
	fmt.Printf("Created cover %s (%dx%d, up to %d characters)\n",
		output, img.Bounds().Dx(), img.Bounds().Dy(), watermark.Probe(img.Pix).MaxMessage)
	return nil
}

// readPassword reads a password from the terminal without echo, or a line
// from stdin when it is not a terminal.
func readPassword(promptText string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, 4096))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		line, _, _ := strings.Cut(string(data), "\n")
		return strings.TrimRight(line, "\r"), nil
	}

	fmt.Fprint(os.Stderr, promptText)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func fatal(err error) {
	log.Errorf("%v", err)
	if !log.Enabled(logging.Error) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`GoStego — LSB Text Watermarks (Pure Go)

USAGE:
    gostego embed -i <image> -o <out> (-t <text> | -f <file>) [-p <pass> | -P]
    gostego extract -i <image> [-p <pass> | -P]
    gostego capacity -i <image>
    gostego cover -o <out> [options]
    gostego scan [-p <pass>] [-j <n>] <image>...
    gostego env | version | help

EMBED:
    -i <path>          Cover image (png, bmp, tiff, jpeg, gif, webp)
    -o <path>          Output image (.png, .bmp or .tiff)
    -t <text>          Watermark text (max 1000 characters)
    -f <path>          Read watermark text from a file
    -p <pass>          Encrypt with a password
    -P                 Prompt for the password

EXTRACT:
    -i <path>          Watermarked image
    -p <pass>, -P      Password for encrypted watermarks

COVER:
    -o <path>          Output image
    -w, -h <px>        Size (default: 1280x720)
    --color <hex>      Background color or 'random' (default: random)
    --noise <n>        Per-sample noise amplitude (default: 0)
    --caption <text>   Centered caption
    --font <path>      Caption TTF (default: embedded Go Regular)
    --size <pt>        Caption size (default: 24)
    --for <n>          Smallest square cover for an n-character message

SCAN:
    -p <pass>          Password tried on encrypted watermarks
    -j <n>             Concurrent files (default: GOSTEGO_WORKERS)

Run 'gostego env' for the environment variables.

EXAMPLES:
    gostego cover -o cover.png --for 1000 --noise 6
    gostego embed -i cover.png -o marked.png -t "© 2024 Studio" -P
    gostego extract -i marked.png -P
    gostego scan -p secret shots/*.png
`)
}
