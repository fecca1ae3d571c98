/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/azure/arm-template-backup/cmd"

func main() {
	cmd.Execute()
}
