// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	PlanNotFoundId Id = iota + 1
	PlanParseErrorId
	ConfigLoadFailedId
	ImageNotFoundId
	MountFailedId
	DismountFailedId
	LockTimeoutId
	CacheIntegrityId
	DownloadFailedId
	ServicingToolNotFoundId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	planNotFoundIssue = &Issue{
		id: PlanNotFoundId,
		mdMsg: `
# No customization plan found!

We searched for a plan file but couldn't find one at the given path.

## Things you can try:
- Pass the plan explicitly:
~~~
$ imgcraft customize ./plan.cue
~~~

- Create a minimal plan:
~~~cue
image: {
  path: "/images/base.img"
}
~~~`,
	}

	planParseErrorIssue = &Issue{
		id: PlanParseErrorId,
		mdMsg: `
# Failed to parse the customization plan!

Your plan contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- A runtime section with neither url+sha256 nor local_path
- startup_commands without a startup_script

## Things you can try:
- Check the error message above for the specific field path
- Validate your CUE syntax using the cue command-line tool
- Run with verbose mode for more details:
~~~
$ imgcraft --verbose customize ./plan.cue
~~~

## Example of a valid plan:
~~~cue
image: {
  path:  "/images/base.img"
  index: 1
}
runtime: {
  name:        "agent"
  version:     "7.3.4"
  url:         "https://pkg.example.com/agent-7.3.4.tar.gz"
  sha256:      "..."
  install_dir: "opt/agent"
}
copies: [
  {source: "/srv/payload/conf", dest: "opt/agent/conf"},
]
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the imgcraft configuration file.

## Configuration file locations:
- Linux: ~/.config/imgcraft/config.cue
- macOS: ~/Library/Application Support/imgcraft/config.cue

## Things you can try:
- Show the effective configuration:
~~~
$ imgcraft config show
~~~

- Check the configuration syntax
- Remove the config file to use defaults

## Example configuration:
~~~cue
paths: {
	cache:     "/var/cache/imgcraft"
	work_root: "/var/tmp/imgcraft"
}
retry: {
	max_attempts: 3
	base_delay:   "500ms"
}
copy: max_workers: 4
~~~`,
	}

	imageNotFoundIssue = &Issue{
		id: ImageNotFoundId,
		mdMsg: `
# Image file not found!

The image path named in the plan does not exist on this host.

## Things you can try:
- Check the 'image.path' field in your plan for typos
- Verify the image file is readable by your user
- If the image lives on removable or network storage, make sure it is
  attached and mounted`,
	}

	mountFailedIssue = &Issue{
		id: MountFailedId,
		mdMsg: `
# Image mount failed!

The servicing tool could not mount the image, and the bounded retries
were exhausted. No changes were committed to the image.

## Common causes:
- A scanner or indexer holds a handle on the image file
- A previous run left a stale mount behind
- The image file is corrupt

## Things you can try:
- Check for stale mounts and clean them up with the servicing tool
- Exclude the image and work directories from background scanners
- Retry once the host is idle
- Run with verbose mode for the tool's full output:
~~~
$ imgcraft --verbose customize ./plan.cue
~~~`,
	}

	dismountFailedIssue = &Issue{
		id: DismountFailedId,
		mdMsg: `
# Image dismount failed!

The image could not be dismounted cleanly. When this happens during a
discard, imgcraft escalates to a forced discard dismount; if even that
fails, the mount may still be present on the host.

## Things you can try:
- List active mounts with your servicing tool and clean them up
- Close any shells or file browsers open inside the mount directory
- Reboot as a last resort if the mount is wedged`,
	}

	lockTimeoutIssue = &Issue{
		id: LockTimeoutId,
		mdMsg: `
# Timed out waiting for another imgcraft process!

Mount and dismount operations are serialized across all imgcraft
processes on this host, and the wait exceeded the configured bound.

## Things you can try:
- Check for another long-running imgcraft invocation and let it finish
- Raise the bound in your configuration:
~~~cue
timeouts: lock: "20m"
~~~

- If no other process is running, a crashed process may have left its
  lock file behind; the lock releases automatically when the holding
  process exits, so a stale lock means the holder is still alive`,
	}

	cacheIntegrityIssue = &Issue{
		id: CacheIntegrityId,
		mdMsg: `
# Downloaded package failed verification!

The runtime package's content hash did not match the sha256 named in
the plan. The file was NOT placed into the cache and was NOT injected
into the image.

## Common causes:
- The plan's sha256 is out of date for the URL
- The download source serves a different build under the same name
- A proxy or captive portal mangled the download

## Things you can try:
- Re-check the expected hash against the publisher's checksum file
- Update the 'runtime.sha256' field in your plan
- Try the download manually and inspect what comes back`,
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Package download failed!

The runtime package could not be fetched from the URL in the plan.

## Things you can try:
- Check network connectivity and proxy settings
- Verify the 'runtime.url' field is still valid
- If the host is offline, pre-place the package and use 'local_path'
  instead of 'url' in the plan`,
	}

	servicingToolNotFoundIssue = &Issue{
		id: ServicingToolNotFoundId,
		mdMsg: `
# Servicing tool not found!

The configured image-servicing tool is not installed or not in PATH.

## Things you can try:
- Install the servicing tool for your platform
- Point imgcraft at the binary explicitly:
~~~cue
servicing: command: "/usr/local/bin/servicetool"
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Common causes:
- Mounting images requires elevated privileges on most hosts
- The cache or work directory is owned by another user
- The image file is read-only

## Things you can try:
- Run imgcraft with the privileges your servicing tool requires
- Point 'paths.cache' and 'paths.work_root' at directories you own
- Check the image file's permissions`,
	}

	issues = map[Id]*Issue{
		planNotFoundIssue.Id():          planNotFoundIssue,
		planParseErrorIssue.Id():        planParseErrorIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		imageNotFoundIssue.Id():         imageNotFoundIssue,
		mountFailedIssue.Id():           mountFailedIssue,
		dismountFailedIssue.Id():        dismountFailedIssue,
		lockTimeoutIssue.Id():           lockTimeoutIssue,
		cacheIntegrityIssue.Id():        cacheIntegrityIssue,
		downloadFailedIssue.Id():        downloadFailedIssue,
		servicingToolNotFoundIssue.Id(): servicingToolNotFoundIssue,
		permissionDeniedIssue.Id():      permissionDeniedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
