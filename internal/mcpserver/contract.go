package mcpserver

// FrameFormatContract describes the frame document that configures which
// record fields feed each identifier.
const FrameFormatContract = `# trihash Frame Document

A frame document is YAML. It names the record schema and one frame per
identifier field. Every frame yields one 48-symbol identifier made of three
16-symbol Base96 segments: SCH (content), CUID (content + time), UUID (random).

## Structure

` + "```" + `yaml
schema: [task_name, description, category, owner]   # REQUIRED – record field names
frames:
  - frame_name: Task content          # REQUIRED – human-readable name
    hash_field: sem_content_hash      # REQUIRED – op_* or sem_*; unique
    input:
      fields: [task_name, description, category]   # REQUIRED – subset of schema, ordered
      separator: "|"                  # OPTIONAL – joins fields; default empty
      normalization:
        lowercase: true               # OPTIONAL
        trim: true                    # OPTIONAL – leading/trailing whitespace
        strip_punctuation: false      # OPTIONAL – Unicode punctuation
        unicode_form: NFC             # OPTIONAL – NFC, NFD, NFKC or NFKD
    seeds:                            # OPTIONAL – all default to the values below
      sch: fixed
      cuid: timestamp
      uuid: random
` + "```" + `

## Rules

1. **hash_field** starts with ` + "`" + `op_` + "`" + ` (operational) or ` + "`" + `sem_` + "`" + ` (semantic),
   followed by letters, digits or underscores.
2. **fields** are taken in the listed order. Reordering them changes every identifier.
3. A record missing an input field hashes it as the empty string.
4. The same normalized input always yields the same SCH segment. CUID also
   depends on the generation time; UUID never repeats.
5. Identifiers contain only Base96 symbols: the 91 printable ASCII characters
   other than space, quote, apostrophe and backslash, plus ` + "`" + `¡¢£¤¥` + "`" + `.

## Export formats

- ` + "`" + `structured` + "`" + ` – JSON object of hash field to identifier.
- ` + "`" + `compact` + "`" + ` – ` + "`" + `(hashes(sem_content_hash "…"))` + "`" + `.
- ` + "`" + `symbol` + "`" + ` – glyph table plus one glyph per field.
- ` + "`" + `identifiers` + "`" + ` – one identifier per line, sorted by field; cannot be imported.
`
