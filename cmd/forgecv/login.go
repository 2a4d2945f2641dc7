package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the free hosted tier",
	Long: `Sign in to the free hosted tier and store the session in the workspace. With --register a new
account is created first. The password is read from FORGECV_PASSWORD or from the first line of stdin.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the hosted tier session",
	RunE:  runLogout,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's hosted tier allowance",
	RunE:  runUsage,
}

var (
	loginEmail    string
	loginName     string
	loginRegister bool
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginName, "name", "", "Display name (required with --register)")
	loginCmd.Flags().BoolVar(&loginRegister, "register", false, "Create the account before signing in")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, logoutCmd, usageCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	return withApp(ctx, func(a *app) error {
		var (
			resp *types.LoginResponse
			err  error
		)
		if loginRegister {
			if loginName == "" {
				return fmt.Errorf("--name is required with --register")
			}
			resp, err = a.hosted.Register(ctx, types.CreateUserRequest{Name: loginName, Email: loginEmail, Password: password})
		} else {
			resp, err = a.hosted.Login(ctx, loginEmail, password)
		}
		if err != nil {
			return fmt.Errorf("failed to sign in: %w", err)
		}
		name := loginEmail
		if resp.User != nil && resp.User.Name != "" {
			name = resp.User.Name
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", name)
		return nil
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if err := storage.NewSession(a.store).ClearTokens(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	})
}

func runUsage(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		usage, err := a.hosted.UsageStatus(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Used %d of %d actions today (%d remaining)\n", usage.Used, usage.Limit, usage.Remaining)
		if usage.ResetsAt != nil {
			fmt.Fprintf(out, "Resets at %s\n", usage.ResetsAt.Local().Format(time.RFC1123))
		}
		return nil
	})
}

func readPassword(in io.Reader) (string, error) {
	if pw := os.Getenv("FORGECV_PASSWORD"); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("password is required (set FORGECV_PASSWORD or pipe it on stdin)")
	}
	return pw, nil
}
