package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/iyunix/go-chatsync/internal/domain"
)

var (
	userColor      = color.New(color.FgGreen, color.Bold)
	assistantColor = color.New(color.FgCyan)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	errorColor     = color.New(color.FgRed)
	mutedColor     = color.New(color.FgHiBlack)
)

func title(format string, args ...interface{}) {
	titleColor.Printf(format+"\n", args...)
}

func printMessage(m domain.Message) {
	if m.Role == domain.RoleUser {
		userColor.Print("you> ")
		fmt.Println(m.Content)
		return
	}
	assistantColor.Print("ai> ")
	assistantColor.Println(m.Content)
}

func printError(err error) {
	errorColor.Printf("error: %v\n", err)
}
