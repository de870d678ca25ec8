// Command splc is the command-line front end for the SPL compiler: it
// reads SPL source, runs it through pkg/compiler.Compile, and writes the
// resulting NASM assembly. It is a thin urfave/cli wrapper around that
// single call — all compiler behavior lives in pkg/compiler.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sanity-io/litter"
	"github.com/urfave/cli/v2"

	"splc/pkg/compiler"
	"splc/pkg/utils"
)

func main() {
	app := &cli.App{
		Name:      "splc",
		Usage:     "compile SPL source to x86-64 NASM assembly",
		ArgsUsage: "[source-file]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write assembly to `FILE` instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "dump-tokens",
				Usage: "print the token stream and exit without generating code",
			},
			&cli.BoolFlag{
				Name:  "dump-ast",
				Usage: "print the parsed AST and exit without generating code",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		if code, ok := err.(cli.ExitCoder); ok {
			os.Exit(code.ExitCode())
		}
		fmt.Fprintln(os.Stderr, color.RedString("Internal: %s", err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	src, err := readSource(c.Args().First())
	if err != nil {
		return cli.Exit(color.RedString("Internal: %s", err), 1)
	}

	if c.Bool("dump-tokens") {
		tokens, err := compiler.Lex(src)
		if err != nil {
			return reportAndExit(err)
		}
		for _, tok := range tokens {
			fmt.Println(tok)
		}
		return nil
	}

	if c.Bool("dump-ast") {
		tokens, err := compiler.Lex(src)
		if err != nil {
			return reportAndExit(err)
		}
		prog, err := compiler.Parse(tokens)
		if err != nil {
			return reportAndExit(err)
		}
		litter.Dump(prog)
		return nil
	}

	asm, err := compiler.Compile(src)
	if err != nil {
		return reportAndExit(err)
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(color.RedString("Internal: %s", err), 1)
		}
		defer f.Close()
		out = f
	}
	fmt.Fprint(out, asm)
	return nil
}

// readSource reads from path, or from stdin when path is empty. Read
// failures report the resolved absolute path rather than whatever
// relative form the caller typed.
func readSource(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(fullPath)
	return string(data), err
}

// reportAndExit maps one of the four typed compiler errors (errors.go) to
// an exit code per spec.md §6: every lex/parse/semantic/internal error
// exits 1 after the colored diagnostic is printed.
func reportAndExit(err error) error {
	switch err.(type) {
	case *compiler.LexError, *compiler.ParseError, *compiler.SemanticError:
		return cli.Exit(color.RedString(err.Error()), 1)
	case *compiler.InternalError:
		return cli.Exit(color.New(color.FgRed, color.Bold).Sprint(err.Error()), 1)
	default:
		return cli.Exit(color.RedString("Internal: %s", err), 1)
	}
}
