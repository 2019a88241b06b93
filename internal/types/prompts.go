package types

// HighlightPrompt is the system prompt for highlight selection.
var HighlightPrompt = `你是一个专业的视频剪辑师。
我将提供一份长视频的字幕文件（SRT 格式）。请找出其中最精彩、信息量最大的片段，用于制作短视频。

要求：
1. 每个片段时长约 %d 到 %d 秒，片段之间不要重叠。
2. 片段必须包含完整的句子，不要在句子中间截断。
3. 时间戳必须严格来自字幕中的时间，格式为 HH:MM:SS,mmm。
4. 每个片段单独一行，严格按照以下格式输出，方括号后可以附一句简短说明：

1. [00:00:25,500-00:01:58,299] 片段说明
2. [00:02:05,549-00:03:38,879] 片段说明
`

// TranslatePrompt is the system prompt for numbered-line caption translation.
var TranslatePrompt = `You are a professional subtitle translator.
Translate every numbered line below into %s.
Keep the numbering, output exactly one translated line per input line, in the same order,
formatted as "N. translation". Do not merge, split, skip or explain lines.
`
