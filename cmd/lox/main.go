package main

import (
	"flag"
	"fmt"
	"os"
	"treelox/pkg/driver"
	"treelox/pkg/interpreter"
)

func main() {
	// Define flags
	exprFlag := flag.String("e", "", "Run the given code and exit")
	tokensFlag := flag.Bool("tokens", false, "Show scanned tokens before execution")
	astFlag := flag.Bool("ast", false, "Show the parsed AST before execution")
	maxDepthFlag := flag.Int("max-depth", interpreter.DefaultMaxDepth, "Maximum call depth before a stack overflow error")

	flag.Parse()

	options := driver.RunOptions{ShowTokens: *tokensFlag, ShowAST: *astFlag}
	session := driver.NewSession(driver.WithMaxDepth(*maxDepthFlag))

	if *exprFlag != "" {
		os.Exit(int(runExpression(session, *exprFlag, options)))
	}

	switch flag.NArg() {
	case 0:
		runRepl(session, options)
	case 1:
		os.Exit(int(runFile(session, flag.Arg(0), options)))
	default:
		fmt.Fprintf(os.Stderr, "Usage: lox [script] or lox -e \"code\"\n")
		os.Exit(int(driver.ExitUsage))
	}
}

// runExpression runs the code passed with -e, echoing the value of a
// trailing expression.
func runExpression(session *driver.Session, code string, options driver.RunOptions) driver.ExitStatus {
	options.Repl = true
	value, errs := session.RunCode(code, options)
	session.DisplayResult(code, value, errs)
	return driver.ExitStatusFor(errs)
}

func runFile(session *driver.Session, filename string, options driver.RunOptions) driver.ExitStatus {
	if !options.ShowTokens && !options.ShowAST {
		return session.RunFile(filename)
	}
	// Debug output needs the source in hand.
	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file '%s': %s\n", filename, err.Error())
		return driver.ExitIOErr
	}
	src := string(sourceBytes)
	value, errs := session.RunCode(src, options)
	session.DisplayResult(src, value, errs)
	return driver.ExitStatusFor(errs)
}

// runRepl starts the Read-Eval-Print Loop.
func runRepl(session *driver.Session, options driver.RunOptions) {
	fmt.Println("Lox (Ctrl+D to exit)")
	if err := session.RunPrompt(os.Stdin, options); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(int(driver.ExitIOErr))
	}
}
