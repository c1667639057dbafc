package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prn-tf/tally/internal/service"
)

// maxRegisterAttempts bounds the interactive registration retry loop.
const maxRegisterAttempts = 5

// app is the interactive menu session. It only parses input, calls the
// tracker, and prints results; all rules live behind the Tracker
// interface.
type app struct {
	tracker service.Tracker
	in      *bufio.Scanner
	out     io.Writer
}

func newApp(tracker service.Tracker, in io.Reader, out io.Writer) *app {
	return &app{
		tracker: tracker,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

func (a *app) run(ctx context.Context) {
	for {
		if a.tracker.CurrentUser() == "" {
			if done := a.welcomeMenu(ctx); done {
				return
			}
		} else {
			if done := a.mainMenu(ctx); done {
				return
			}
		}
	}
}

// welcomeMenu handles the logged-out state. Returns true to exit.
func (a *app) welcomeMenu(ctx context.Context) bool {
	fmt.Fprintln(a.out, "\n--- Personal Finance Tracker ---")
	fmt.Fprintln(a.out, "1. Register")
	fmt.Fprintln(a.out, "2. Login")
	fmt.Fprintln(a.out, "3. Exit")

	switch a.prompt("Choose an option: ") {
	case "1":
		a.registerUser(ctx)
	case "2":
		identifier := a.prompt("Enter username or email: ")
		password := a.prompt("Enter password: ")
		if err := a.tracker.Login(ctx, identifier, password); err != nil {
			fmt.Fprintln(a.out, "Error:", err)
		} else {
			fmt.Fprintf(a.out, "Logged in as: %s\n", a.tracker.CurrentUser())
		}
	case "3":
		fmt.Fprintln(a.out, "Exiting.")
		return true
	default:
		fmt.Fprintln(a.out, "Invalid choice. Please try again.")
	}
	return false
}

// mainMenu handles the logged-in state. Returns true to exit.
func (a *app) mainMenu(ctx context.Context) bool {
	fmt.Fprintf(a.out, "\nWelcome, %s!\n", a.tracker.CurrentUser())
	fmt.Fprintln(a.out, "--- Personal Finance Tracker ---")
	fmt.Fprintln(a.out, "1. Logout")
	fmt.Fprintln(a.out, "2. Add Expense")
	fmt.Fprintln(a.out, "3. Add Income")
	fmt.Fprintln(a.out, "4. Set Budget")
	fmt.Fprintln(a.out, "5. View Report")
	fmt.Fprintln(a.out, "6. Exit")

	switch a.prompt("Choose an option: ") {
	case "1":
		_ = a.tracker.Logout(ctx)
		fmt.Fprintln(a.out, "Logged out.")
	case "2":
		category := a.prompt("Enter expense category: ")
		if amount, ok := a.promptAmount("Enter expense amount: "); ok {
			a.report(a.tracker.AddExpense(ctx, category, amount),
				fmt.Sprintf("Added expense: %s - $%.2f", category, amount))
		}
	case "3":
		source := a.prompt("Enter income source: ")
		if amount, ok := a.promptAmount("Enter income amount: "); ok {
			a.report(a.tracker.AddIncome(ctx, source, amount),
				fmt.Sprintf("Added income: %s - $%.2f", source, amount))
		}
	case "4":
		if amount, ok := a.promptAmount("Enter budget amount: "); ok {
			a.report(a.tracker.SetBudget(ctx, amount),
				fmt.Sprintf("Budget set to $%.2f", amount))
		}
	case "5":
		rep, err := a.tracker.ViewReport(ctx)
		if err != nil {
			fmt.Fprintln(a.out, "Error:", err)
			break
		}
		fmt.Fprintln(a.out, "\n--- Financial Report ---")
		fmt.Fprintf(a.out, "Total Income: $%.2f\n", rep.TotalIncome)
		fmt.Fprintf(a.out, "Total Expenses: $%.2f\n", rep.TotalExpenses)
		fmt.Fprintf(a.out, "Budget: $%.2f\n", rep.Budget)
		fmt.Fprintf(a.out, "Remaining: $%.2f\n", rep.Remaining)
	case "6":
		fmt.Fprintln(a.out, "Exiting.")
		return true
	default:
		fmt.Fprintln(a.out, "Invalid choice. Please try again.")
	}
	return false
}

// registerUser walks the registration dialog, retrying on bad input up
// to maxRegisterAttempts. A successful registration logs the user in.
func (a *app) registerUser(ctx context.Context) {
	for attempts := 0; attempts < maxRegisterAttempts; attempts++ {
		email := a.prompt("Enter email: ")
		if a.tracker.UserExists(email) {
			fmt.Fprintln(a.out, "Email already registered. Please try again.")
			continue
		}

		username := a.prompt("Enter username (leave empty to derive from email): ")
		if username != "" && a.tracker.UserExists(username) {
			fmt.Fprintln(a.out, "Username already exists. Please try a different one.")
			continue
		}

		name := a.prompt("Enter your full name: ")

		age, err := strconv.Atoi(a.prompt("Enter your age: "))
		if err != nil || age <= 0 {
			fmt.Fprintln(a.out, "Age must be a valid positive number. Please try again.")
			continue
		}

		password := a.prompt("Enter password: ")

		input := service.RegisterInput{
			Email:    email,
			Password: password,
			Name:     name,
			Age:      age,
			Username: username,
		}
		if err := a.tracker.Register(ctx, input); err != nil {
			fmt.Fprintln(a.out, "Error:", err)
			continue
		}

		fmt.Fprintln(a.out, "Registration successful. Logging you in...")
		if err := a.tracker.Login(ctx, email, password); err != nil {
			fmt.Fprintln(a.out, "Error:", err)
		}
		return
	}
	fmt.Fprintln(a.out, "You have exceeded the maximum attempts.")
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	if !a.in.Scan() {
		return ""
	}
	return strings.TrimSpace(a.in.Text())
}

func (a *app) promptAmount(label string) (float64, bool) {
	amount, err := strconv.ParseFloat(a.prompt(label), 64)
	if err != nil {
		fmt.Fprintln(a.out, "Invalid amount. Please enter a valid number.")
		return 0, false
	}
	return amount, true
}

func (a *app) report(err error, success string) {
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	fmt.Fprintln(a.out, success)
}
