package main

import "github.com/charmbracelet/lipgloss"

var (
	keyword = lipgloss.NewStyle().
		Foreground(lipgloss.Color("204")).
		Background(lipgloss.Color("235")).
		Render

	paragraph = lipgloss.NewStyle().
			Width(78).
			Padding(0, 0, 0, 2).
			Render

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Render

	installedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Render

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Render
)
