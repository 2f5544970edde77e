package pipeline

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type commentBlock struct {
	opening string
	closing string
	// linePrefix is stripped from every row inside the block.
	linePrefix string
}

// A SQL asset starts with its definition, either as a block comment or as a run of line
// comments, both fenced by @bruin markers.
var commentBlocks = []commentBlock{
	{opening: "/* @bruin", closing: "@bruin */"},
	{opening: "/*@bruin", closing: "@bruin*/"},
	{opening: "-- @bruin", closing: "-- @bruin", linePrefix: "--"},
	{opening: "--@bruin", closing: "--@bruin", linePrefix: "--"},
}

func CreateTaskFromFileComments(fs afero.Fs) TaskCreator {
	return func(filePath string) (*Asset, error) {
		if filepath.Ext(filePath) != ".sql" {
			return nil, nil
		}

		content, err := afero.ReadFile(fs, filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open file %s", filePath)
		}

		definition, body, err := splitDefinition(string(content))
		if err != nil {
			return nil, &ParseError{Msg: err.Error() + " in " + filePath}
		}

		task, err := ConvertYamlToTask([]byte(definition))
		if err != nil {
			return nil, err
		}

		absFilePath, err := filepath.Abs(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get absolute path for file %s", filePath)
		}

		task.ExecutableFile = ExecutableFile{
			Name:    filepath.Base(filePath),
			Path:    absFilePath,
			Content: body,
		}
		task.DefinitionFile = TaskDefinitionFile{
			Name: filepath.Base(filePath),
			Path: absFilePath,
			Type: CommentTask,
		}

		return task, nil
	}
}

// splitDefinition separates the embedded YAML from the query that follows it.
func splitDefinition(content string) (string, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	var (
		block      *commentBlock
		definition []string
		body       []string
		closed     bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case closed:
			body = append(body, line)
		case block == nil:
			if trimmed == "" {
				continue
			}
			for i := range commentBlocks {
				if trimmed == commentBlocks[i].opening {
					block = &commentBlocks[i]
					break
				}
			}
			if block == nil {
				return "", "", errors.New("no `@bruin` block found at the top of the file")
			}
		case trimmed == block.closing:
			closed = true
		default:
			if block.linePrefix != "" {
				line = strings.TrimPrefix(strings.TrimPrefix(strings.TrimLeft(line, " \t"), block.linePrefix), " ")
			}
			definition = append(definition, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}

	if !closed {
		return "", "", errors.New("the `@bruin` block is not closed")
	}

	yamlContent := strings.TrimSpace(strings.Join(definition, "\n"))
	if yamlContent == "" {
		return "", "", errors.New("no embedded YAML found in the comments")
	}

	return yamlContent, strings.TrimSpace(strings.Join(body, "\n")), nil
}
