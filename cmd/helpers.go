package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"
	"strings"

	"github.com/bruin-data/timerange-merge/pkg/config"
	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v2"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func switchEnvironment(env string, force bool, cm *config.Config, stdin io.ReadCloser) error {
	if env == "" {
		return nil
	}

	err := cm.SelectEnvironment(env)
	if err != nil {
		errorPrinter.Printf("Failed to use the environment '%s': %v\n", env, err)
		return cli.Exit("", 1)
	}

	// environments named like "prod" need a confirmation
	if !force && strings.Contains(strings.ToLower(env), "prod") {
		prompt := promptui.Prompt{
			Label:     "You are using a production environment. Are you sure you want to continue?",
			IsConfirm: true,
			Stdin:     stdin,
		}

		_, err := prompt.Run()
		if err != nil {
			fmt.Printf("The operation is cancelled.\n")
			return cli.Exit("", 1)
		}
	}

	return nil
}

func RecoverFromPanic() {
	if err := recover(); err != nil {
		log.Println("=======================================")
		log.Println("trmerge encountered an unexpected error, please report the issue.")
		log.Println(err)
		log.Println("=======================================")
		b := bufio.NewScanner(bytes.NewBuffer(debug.Stack()))
		for b.Scan() {
			log.Println(b.Text())
		}
		os.Exit(1)
	}
}

func printErrorJSON(w io.Writer, err error) {
	errResponse := ErrorResponse{
		Error: errors.New("something went wrong").Error(),
	}
	if err != nil {
		errResponse.Error = err.Error()
	}

	js, err := json.Marshal(errResponse)
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, string(js))
}

func printError(w io.Writer, err error, output string, message string) {
	if output == "json" {
		printErrorJSON(w, err)
		return
	}
	errorPrinter.Fprintf(w, "%s: %v\n", message, err)
}

func printSuccessForOutput(w io.Writer, output string, message string) {
	if output == "json" {
		jsonData, err := json.Marshal(SuccessResponse{Status: "success", Message: message})
		if err != nil {
			fmt.Fprintln(w, "Error:", err.Error())
			return
		}
		fmt.Fprintln(w, string(jsonData))
		return
	}
	successPrinter.Fprintf(w, "%s\n", message)
}
