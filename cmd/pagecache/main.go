// pagecache measures page cache residency and monitors how long data
// stays cached.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/frobware/go-pagecache/cmd/pagecache/cli"
)

func main() {
	var c cli.CLI
	ctx := kong.Parse(&c, cli.KongOptions()...)
	ctx.FatalIfErrorf(ctx.Run(&c))
}
