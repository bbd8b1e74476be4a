// Copyright © 2017 yuuki0xff <yuuki0xff@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yuuki0xff/frametrace/config"
	"github.com/yuuki0xff/frametrace/tracer/restapi"
)

// func(*handlerOpt) error が返すエラーの一覧
var (
	errGeneral     = errors.New("general error")
	errInvalidArgs = errors.New("invalid args")
	errIo          = errors.New("io error")
)

var (
	errApiClient = errors.New("Failed to initialize API Client")
)

func Execute() int {
	err := RootCmd.Execute()
	switch errors.Cause(err) {
	case nil:
		return 0
	case errGeneral:
		return 1
	case errInvalidArgs:
		// EX_USAGE 64
		return 64
	case errIo:
		// EX_IOERR 74
		return 74
	default:
		// Unknown error
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return 1
	}
}

type cobraHandler func(cmd *cobra.Command, args []string) error
type handlerOpt struct {
	Conf   *config.Config
	Cmd    *cobra.Command
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	ErrLog *log.Logger
}

// Api returns an API Client object.
func (opt *handlerOpt) Api(ctx context.Context) (api restapi.ClientWithCtx, err error) {
	var apiNoctx *restapi.Client
	apiNoctx, err = getAPIClient(opt.Conf)
	if err != nil {
		err = errors.Wrap(err, errApiClient.Error())
		return
	}

	api = apiNoctx.WithCtx(ctx)
	return
}

// ApiWithCancel returns an API Client object with cancelable context.
func (opt *handlerOpt) ApiWithCancel(ctx context.Context) (api restapi.ClientWithCtx, cancel func(), err error) {
	ctx, cancel = context.WithCancel(ctx)
	api, err = opt.Api(ctx)
	return
}

func wrap(fn func(*handlerOpt) error) cobraHandler {
	return func(cmd *cobra.Command, args []string) error {
		c, err := getConfig()
		if err != nil {
			return err
		}

		ha := handlerOpt{
			Conf:   c,
			Cmd:    cmd,
			Args:   args,
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
			ErrLog: log.New(cmd.ErrOrStderr(), "ERROR: ", 0),
		}
		if err := fn(&ha); err != nil {
			return err
		}
		return c.SaveIfWant()
	}
}

func getConfig() (*config.Config, error) {
	c := config.NewConfig(cfgDir)
	err := c.Load()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func defaultTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")
	table.SetRowSeparator("-")
	// デフォルトの行の幅は狭すぎるため、無駄な折り返しが生じる。
	// これを回避するために、大きめの値を設定する。
	table.SetColWidth(120)
	return table
}

func getAPIClient(conf *config.Config) (*restapi.Client, error) {
	addr := srvAddr
	if addr == "" {
		if conf == nil {
			return nil, errors.New("server not found")
		}
		srv, ok := conf.Servers.First()
		if !ok {
			return nil, errors.New("server not found. start it with \"server run\" or specify --server")
		}
		addr = srv.Addr
	}
	api := &restapi.Client{
		BaseUrl: addr,
	}
	if err := api.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize an API client")
	}
	return api, nil
}
