// SPDX-License-Identifier: MPL-2.0

package main

import cmd "imgcraft-cli/cmd/imgcraft"

func main() {
	cmd.Execute()
}
