// memviz renders a bank hex image as a grayscale lane map PNG for
// eyeballing SIMD results: one row per word, one cell per lane, each
// cell shaded by the lane's unsigned value. Useful for spotting lane
// ordering mistakes that are hard to see in hex dumps.
package main

import (
	"bufio"
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/jmchacon/simdaccel/bitvec"
	"golang.org/x/image/draw"
)

var (
	width = flag.Int("width", 64, "Bank word width in bits")
	lane  = flag.Int("lane", 8, "Lane width in bits (must divide word width)")
	scale = flag.Int("scale", 16, "Pixels per lane cell in the output image")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 2 {
		log.Fatalf("Invalid command: %s <input.hex> <output.png>", os.Args[0])
	}
	if *lane <= 0 || *lane > 32 || *width%*lane != 0 {
		log.Fatalf("Lane width %d must divide word width %d and be at most 32", *lane, *width)
	}

	f, err := os.Open(flag.Args()[0])
	if err != nil {
		log.Fatalf("Can't open %q for input - %v", flag.Args()[0], err)
	}
	defer f.Close()

	var words []bitvec.Vector
	scanner := bufio.NewScanner(f)
	l := 0
	for scanner.Scan() {
		l++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		w, err := bitvec.ParseHex(line, *width)
		if err != nil {
			log.Fatalf("Can't process input line %d - %v", l, err)
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Can't read %q - %v", flag.Args()[0], err)
	}
	if len(words) == 0 {
		log.Fatalf("No words in %q", flag.Args()[0])
	}

	// One pixel per lane, most significant lane leftmost to match the
	// hex dump reading order.
	cols := *width / *lane
	src := image.NewGray(image.Rect(0, 0, cols, len(words)))
	max := float64(uint64(1)<<uint(*lane) - 1)
	for y, w := range words {
		for x := 0; x < cols; x++ {
			v := w.SliceUint64((cols-1-x)**lane, *lane)
			src.SetGray(x, y, color.Gray{Y: uint8(float64(v) / max * 255)})
		}
	}

	dst := image.NewGray(image.Rect(0, 0, cols**scale, len(words)**scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	of, err := os.Create(flag.Args()[1])
	if err != nil {
		log.Fatalf("Can't open output %q - %v", flag.Args()[1], err)
	}
	if err := png.Encode(of, dst); err != nil {
		log.Fatalf("Got error writing to %q - %v", flag.Args()[1], err)
	}
	if err := of.Close(); err != nil {
		log.Fatalf("Error closing %q - %v", flag.Args()[1], err)
	}
}
