/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/pranganb/vtube/cmd"

func main() {
	cmd.Execute()
}
