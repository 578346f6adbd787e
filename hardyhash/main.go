package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/edsrzf/mmap-go"
	"github.com/urfave/cli"

	"github.com/hardyhash/go-hardyhash"
)

func cmdInitialize(c *cli.Context) error {
	if c.NArg() != 4 {
		return cli.NewExitError(
			"usage: hardyhash initialize <lg_n_signers> <lg_messages_per_signer> <randomness> <output_dir>\n\n"+
				"\tlg_n_signers must be an even integer between 2 and 16, inclusive.\n"+
				"\tlg_messages_per_signer must be an even integer between 2 and 16, inclusive.\n"+
				"\trandomness should be a source of entropy, at most 1024 characters long.\n"+
				"\toutput_dir must be a path to the desired output directory, which must not exist.", 1)
	}

	lgSigners, err := strconv.ParseUint(c.Args().Get(0), 10, 32)
	if err != nil {
		return cli.NewExitError("lg_n_signers is not an integer", 1)
	}
	lgMessages, err := strconv.ParseUint(c.Args().Get(1), 10, 32)
	if err != nil {
		return cli.NewExitError("lg_messages_per_signer is not an integer", 1)
	}
	randomness := []byte(c.Args().Get(2))
	outputDir := c.Args().Get(3)

	if len(randomness) > 1024 {
		return cli.NewExitError("randomness must be at most 1024 bytes", 1)
	}

	ctx, err := hardyhash.NewContext(hardyhash.Params{
		LgNumSigners:        uint32(lgSigners),
		LgMessagesPerSigner: uint32(lgMessages),
	})
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if _, err := os.Stat(outputDir); err == nil {
		return cli.NewExitError("output directory already exists", 1)
	}
	if err := os.Mkdir(outputDir, 0700); err != nil {
		return cli.NewExitError(
			fmt.Sprintf("output directory could not be created: %v", err), 1)
	}

	fmt.Println("Initializing...")
	keys, kerr := ctx.Initialize(randomness)
	if kerr != nil {
		return cli.NewExitError(kerr.Error(), 1)
	}
	fmt.Printf("Writing signer states and public key to %s ...\n", outputDir)
	if kerr := keys.WriteToDir(outputDir); kerr != nil {
		return cli.NewExitError(kerr.Error(), 1)
	}
	fmt.Printf("Initialized successfully.\npublic key: %x\n", keys.PublicKey)
	return nil
}

func cmdSign(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.NewExitError(
			"usage: hardyhash sign <state_path> <message_path> <signature_path>", 1)
	}
	statePath := c.Args().Get(0)
	message, done, err := readMessage(c.Args().Get(1))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer done()

	sig, serr := hardyhash.Sign(statePath, message)
	if serr != nil {
		return cli.NewExitError(serr.Error(), 1)
	}
	data, _ := sig.MarshalBinary()
	if err := ioutil.WriteFile(c.Args().Get(2), data, 0600); err != nil {
		return cli.NewExitError(
			fmt.Sprintf("writing signature: %v", err), 1)
	}
	return nil
}

func cmdVerify(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.NewExitError(
			"usage: hardyhash verify <public_key_path> <message_path> <signature_path>", 1)
	}
	pk, kerr := hardyhash.LoadPublicKey(c.Args().Get(0))
	if kerr != nil {
		return cli.NewExitError(kerr.Error(), 1)
	}
	message, done, err := readMessage(c.Args().Get(1))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer done()

	sigData, err := ioutil.ReadFile(c.Args().Get(2))
	if err != nil {
		return cli.NewExitError(
			fmt.Sprintf("reading signature: %v", err), 1)
	}
	var sig hardyhash.Signature
	if err := sig.UnmarshalBinary(sigData); err != nil {
		return cli.NewExitError(
			fmt.Sprintf("decoding signature: %v", err), 1)
	}

	ok, verr := hardyhash.Verify(pk, message, &sig)
	if verr != nil {
		return cli.NewExitError(verr.Error(), 1)
	}
	if !ok {
		return cli.NewExitError("Verification failed.", 1)
	}
	fmt.Println("Verified successfully.")
	return nil
}

// readMessage maps the message file into memory.  The returned done
// function releases the mapping; the message bytes must not be used
// after calling it.
func readMessage(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading message: %v", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("reading message: %v", err)
	}
	if info.Size() == 0 {
		f.Close()
		return []byte{}, func() {}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mapping message: %v", err)
	}
	return m, func() {
		m.Unmap()
		f.Close()
	}, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "hardyhash"
	app.Usage = "stateful hash-based signatures"

	app.Commands = []cli.Command{
		{
			Name:      "initialize",
			Usage:     "Create a pool of signer states and their public key",
			ArgsUsage: "<lg_n_signers> <lg_messages_per_signer> <randomness> <output_dir>",
			Action:    cmdInitialize,
		},
		{
			Name:      "sign",
			Usage:     "Sign a message, consuming one leaf of a signer state",
			ArgsUsage: "<state_path> <message_path> <signature_path>",
			Action:    cmdSign,
		},
		{
			Name:      "verify",
			Usage:     "Verify a signature against a public key",
			ArgsUsage: "<public_key_path> <message_path> <signature_path>",
			Action:    cmdVerify,
		},
	}

	app.Run(os.Args)
}
