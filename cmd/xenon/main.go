// Command xenon is the X#/Xenon toolchain CLI: compile X# to XAssembly,
// assemble XAssembly to binary words, run a binary program on the Xenon
// VM, or do all three in one shot.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lookbusy1344/xenon-toolchain/api"
	"github.com/lookbusy1344/xenon-toolchain/config"
	"github.com/lookbusy1344/xenon-toolchain/driver"
)

var rootCmd = &cobra.Command{
	Use:   "xenon",
	Short: "X#/Xenon toolchain: compile, assemble and run",
}

var compileCmd = &cobra.Command{
	Use:   "compile [source.xs]",
	Short: "compile X# source to XAssembly",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		removeTrailing, _ := cmd.Flags().GetBool("strip-result")
		allowInclude, _ := cmd.Flags().GetBool("allow-include")

		data, err := os.ReadFile(args[0])
		if err != nil {
			fail(err)
		}

		src := driver.DirSource{Dir: "."}
		lines, cerr := driver.Compile(args[0], string(data), src, allowInclude, removeTrailing)
		if cerr != nil {
			fail(cerr)
		}
		fmt.Println(strings.Join(lines, "\n"))
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble [program.xa]",
	Short: "assemble XAssembly to binary words",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fail(err)
		}

		lines := strings.Split(string(data), "\n")
		words, aerr := driver.Assemble(args[0], lines)
		if aerr != nil {
			fail(aerr)
		}
		fmt.Println(strings.Join(words, "\n"))
	},
}

var runCmd = &cobra.Command{
	Use:   "run [program.bin]",
	Short: "run an assembled binary program on the Xenon VM",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		maxSteps, _ := cmd.Flags().GetInt("max-steps")

		data, err := os.ReadFile(args[0])
		if err != nil {
			fail(err)
		}

		words := nonEmptyLines(string(data))
		result, rerr := driver.Run(words, maxSteps)
		if rerr != nil {
			fail(rerr)
		}
		printResult(result)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [source.xs]",
	Short: "compile, assemble and run X# source in one step",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		allowInclude, _ := cmd.Flags().GetBool("allow-include")

		data, err := os.ReadFile(args[0])
		if err != nil {
			fail(err)
		}

		src := driver.DirSource{Dir: "."}
		result, cerr, rerr := driver.Build(args[0], string(data), src, allowInclude, maxSteps)
		if cerr != nil {
			fail(cerr)
		}
		if rerr != nil {
			fail(rerr)
		}
		printResult(result)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP/WebSocket API server",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		cfg, err := config.Load()
		if err != nil {
			fail(err)
		}
		if port != 0 {
			cfg.API.Port = port
		}

		server := api.NewServer(cfg)
		if err := server.Start(); err != nil {
			fail(err)
		}
	},
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func printResult(result *driver.RunResult) {
	fmt.Printf("halted=%t timedOut=%t steps=%d a=%d d=%d\n",
		result.Halted, result.TimedOut, result.Steps, result.A, result.D)
	for _, p := range result.Screen {
		fmt.Printf("pixel (%d,%d)\n", p.X, p.Y)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func init() {
	compileCmd.Flags().Bool("strip-result", false, "strip the trailing result-register load")
	compileCmd.Flags().Bool("allow-include", true, "allow include of .xs files from disk")

	runCmd.Flags().Int("max-steps", 1_000_000, "maximum VM steps before treating the run as timed out")

	buildCmd.Flags().Int("max-steps", 1_000_000, "maximum VM steps before treating the run as timed out")
	buildCmd.Flags().Bool("allow-include", true, "allow include of .xs files from disk")

	serveCmd.Flags().Int("port", 0, "API server port (0 = use config default)")

	rootCmd.AddCommand(compileCmd, assembleCmd, runCmd, buildCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
