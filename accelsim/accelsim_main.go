// accelsim drives the accelerator simulator from the command line:
// it assembles and disassembles programs and runs them against hex
// bank images, printing the resulting MEM2 contents.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/jmchacon/simdaccel/accelerator"
	"github.com/jmchacon/simdaccel/asm"
	"github.com/jmchacon/simdaccel/bitvec"
	"github.com/jmchacon/simdaccel/disassemble"
	"github.com/jmchacon/simdaccel/inst"
	"github.com/jmchacon/simdaccel/mainbuffer"
	"github.com/jmchacon/simdaccel/pe"
	"github.com/spf13/cobra"
)

var (
	peCount     int
	inputBits   int
	accBits     int
	outBits     int
	mem0Depth   int
	mem1Depth   int
	mem2Depth   int
	counterBits int
)

func config() accelerator.Config {
	return accelerator.Config{
		CounterBits: counterBits,
		PECount:     peCount,
		PE: pe.Config{
			InputBits:        inputBits,
			AccumulationBits: accBits,
			OutputBits:       outBits,
		},
		Buffer: mainbuffer.Config{
			Mem0Bits:  peCount * inputBits,
			Mem0Depth: mem0Depth,
			Mem1Bits:  inputBits,
			Mem1Depth: mem1Depth,
			Mem2Bits:  peCount * outBits,
			Mem2Depth: mem2Depth,
		},
	}
}

// readBankImage parses a hex image file (one word per line, # comments)
// into a full bank's worth of words, zero filling past the file's end.
func readBankImage(path string, width, depth int) ([]bitvec.Vector, error) {
	words := make([]bitvec.Vector, depth)
	for i := range words {
		words[i] = bitvec.New(width)
	}
	if path == "" {
		return words, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open %q: %v", path, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	n, l := 0, 0
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
		if n >= depth {
			return nil, fmt.Errorf("%s line %d: more than %d words", path, l, depth)
		}
		if words[n], err = bitvec.ParseHex(line, width); err != nil {
			return nil, fmt.Errorf("%s line %d: %v", path, l, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("can't read %q: %v", path, err)
	}
	return words, nil
}

func assembleFile(path string) ([]inst.Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open %q: %v", path, err)
	}
	defer f.Close()
	a, err := asm.New(inst.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return a.AssembleProgram(f)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "accelsim",
		Short: "Bit-accurate functional simulator for the SIMD MAC accelerator",
	}
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&peCount, "pes", 2, "Number of processing elements")
	pf.IntVar(&inputBits, "input-bits", 32, "PE input register width")
	pf.IntVar(&accBits, "acc-bits", 64, "PE accumulator register width")
	pf.IntVar(&outBits, "out-bits", 32, "PE output register width")
	pf.IntVar(&mem0Depth, "mem0-depth", 1024, "MEM0 bank depth")
	pf.IntVar(&mem1Depth, "mem1-depth", 1024, "MEM1 bank depth")
	pf.IntVar(&mem2Depth, "mem2-depth", 1024, "MEM2 bank depth")
	pf.IntVar(&counterBits, "counter-bits", 16, "Program counter width")
	pf.AddGoFlagSet(flag.CommandLine)

	asmCmd := &cobra.Command{
		Use:   "asm <program>",
		Short: "Assemble a program into packed instruction words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instructions, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			c := inst.DefaultConfig()
			for _, in := range instructions {
				word, err := c.Pack(in)
				if err != nil {
					return err
				}
				fmt.Println(word)
			}
			return nil
		},
	}

	disasmCmd := &cobra.Command{
		Use:   "disasm <words>",
		Short: "Disassemble packed instruction words back into text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := inst.DefaultConfig()
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("can't open %q: %v", args[0], err)
			}
			defer f.Close()
			scanner := bufio.NewScanner(f)
			l := 0
			for scanner.Scan() {
				l++
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				word, err := bitvec.ParseHex(line, c.Bits())
				if err != nil {
					return fmt.Errorf("line %d: %v", l, err)
				}
				in, err := c.Unpack(word)
				if err != nil {
					return fmt.Errorf("line %d: %v", l, err)
				}
				fmt.Println(disassemble.Instruction(in))
			}
			return scanner.Err()
		},
	}

	var mem0Path, mem1Path string
	runCmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program against hex bank images and print MEM2",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instructions, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			cfg := config()
			a, err := accelerator.Init(cfg)
			if err != nil {
				return err
			}
			mem0, err := readBankImage(mem0Path, cfg.Buffer.Mem0Bits, cfg.Buffer.Mem0Depth)
			if err != nil {
				return err
			}
			mem1, err := readBankImage(mem1Path, cfg.Buffer.Mem1Bits, cfg.Buffer.Mem1Depth)
			if err != nil {
				return err
			}
			if err := a.SetMemory(mem0, mem1); err != nil {
				return err
			}
			glog.Infof("running %d instructions on %d PEs", len(instructions), peCount)
			if err := a.ExecuteInstructions(instructions); err != nil {
				return err
			}
			for _, w := range a.Mem2() {
				fmt.Println(w)
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&mem0Path, "mem0", "", "MEM0 hex image (one word per line)")
	runCmd.Flags().StringVar(&mem1Path, "mem1", "", "MEM1 hex image (one word per line)")

	rootCmd.AddCommand(asmCmd, disasmCmd, runCmd)
	if err := rootCmd.Execute(); err != nil {
		glog.Exitf("%v", err)
	}
}
