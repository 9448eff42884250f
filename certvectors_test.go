package tls13

// Real DER certificate vectors extracted from the corpus's jallmann/bertie
// test fixtures (original_source/src/tls13cert.rs): a Google-issued RSA leaf
// and a Cloudflare-issued ECDSA P-256 leaf, used to exercise
// VerificationKeyFromCert against real-world certificates rather than
// synthetic ones.

import "encoding/hex"

var googleRSACertHex = "3082037c30820264a00302010202090090768918e93393a0300d06092a864886f70d01010b0500304e3131302f060355" +
		"040b0c284e6f20534e492070726f76696465643b20706c656173652066697820796f757220636c69656e742e31193017" +
		"06035504031310696e76616c6964322e696e76616c6964301e170d3135303130313030303030305a170d333030313031" +
		"3030303030305a304e3131302f060355040b0c284e6f20534e492070726f76696465643b20706c656173652066697820" +
		"796f757220636c69656e742e3119301706035504031310696e76616c6964322e696e76616c696430820122300d06092a" +
		"864886f70d01010105000382010f003082010a0282010100cd624fe5c31384980c05e4ef44a2a5ecde9971901b283540" +
		"b4d04d9d18488128ad5f10b32adb7dae9d911e42e7efaa198dd34edb910fa7e420322594feb924074d18d7c39a870e5f" +
		"8bcb3e2bd751bfa8be8123a2bf68e521e5bf4b484eb305140c7d095c59043ca20bce997930bef0769e64b7ddef1f16bb" +
		"1ecc0eb40c44cf65adc4c75ece6ff70a03b7b25b36d309775b4de223e902b7b1f2be11b2d9a44f2e125f78006942bd14" +
		"92edeaea6b689b2d9c8056b07a437f5ff687f0a9275fbf7d30f72e5aeb4cdaaf3c9ad50406cb999b2da7b232bd27bff2" +
		"8610910f3395ff263c739fa5feefeb5aec30919da58331a9e310417e15ddafafa6f649b0582526f50203010001a35d30" +
		"5b300e0603551d0f0101ff0404030202a4301d0603551d250416301406082b0601050507030106082b06010505070302" +
		"300f0603551d130101ff040530030101ff30190603551d0e04120410bb0f38966f3ebe4f2b46d0416ad4acb5300d0609" +
		"2a864886f70d01010b05000382010100b9d9e2545cf561ed69f3b863ed035a9e2a81275a1b28334bfc2d7113fe4b657e" +
		"1c53827980e6799f6ab345a9365aedc9e04acc11fc84eb7dcbc6946d9070d8cd45d8c8b6dd0f9d8401147d008e29b213" +
		"b6e9c1b957c34d36c01d4b8d97f7b2afbf2ff04822d77df3ef3560c9d546d4a03400e48207e07ae6095ba71fb1302a60" +
		"64bbb1f531f2770837b4fa3f2df61b442a1ff8c6fc23764263d3ba15f6468eec499fed2ec77483a2b6b7357fc5989fa2" +
		"913093b0cb48156847de1a326006a638eb884e93d91c3ef23f495f6ee9dc18312a010bb66166d8c518b17ead954b182f" +
		"8166c572692004b62913c883593dca765ba8d7ee8f1da0da2e0d9269c398e86a"

var cloudflareECDSACertHex = "308205653082050aa003020102021006407b70e1456ab0e2a5890efd75d1e5300a06082a8648ce3d040302304a310b30" +
		"0906035504061302555331193017060355040a1310436c6f7564666c6172652c20496e632e3120301e06035504031317" +
		"436c6f7564666c61726520496e63204543432043412d33301e170d3232303530343030303030305a170d323330353034" +
		"3233353935395a306e310b3009060355040613025553311330110603550408130a43616c69666f726e69613116301406" +
		"03550407130d53616e204672616e636973636f31193017060355040a1310436c6f7564666c6172652c20496e632e3117" +
		"30150603550403130e636c6f7564666c6172652e636f6d3059301306072a8648ce3d020106082a8648ce3d0301070342" +
		"000499f36ddd6bad71b78996dcedf65e4f4d03d3e9c318cf68e26d801b1eaadb914ab6a8f2ec9a8ef8a34a609db747d7" +
		"41acd9111f8f58c26a802e848cf50f3e2cfea38203ac308203a8301f0603551d23041830168014a5ce37eaebb0750e94" +
		"6788b445fad9241087961f301d0603551d0e04160414f2211f0c78faf35a7230410d2667f3aa6272f77230710603551d" +
		"11046a306882182a2e73746167696e672e636c6f7564666c6172652e636f6d82102a2e636c6f7564666c6172652e636f" +
		"6d82142a2e616d702e636c6f7564666c6172652e636f6d820e636c6f7564666c6172652e636f6d82142a2e646e732e63" +
		"6c6f7564666c6172652e636f6d300e0603551d0f0101ff040403020780301d0603551d250416301406082b0601050507" +
		"030106082b06010505070302307b0603551d1f047430723037a035a0338631687474703a2f2f63726c332e6469676963" +
		"6572742e636f6d2f436c6f7564666c617265496e6345434343412d332e63726c3037a035a0338631687474703a2f2f63" +
		"726c342e64696769636572742e636f6d2f436c6f7564666c617265496e6345434343412d332e63726c303e0603551d20" +
		"043730353033060667810c0102023029302706082b06010505070201161b687474703a2f2f7777772e64696769636572" +
		"742e636f6d2f435053307606082b06010505070101046a3068302406082b060105050730018618687474703a2f2f6f63" +
		"73702e64696769636572742e636f6d304006082b060105050730028634687474703a2f2f636163657274732e64696769" +
		"636572742e636f6d2f436c6f7564666c617265496e6345434343412d332e637274300c0603551d130101ff0402300030" +
		"82017f060a2b06010401d6790204020482016f0482016b0169007700e83ed0da3ef5063532e75728bc896bc903d3cbd1" +
		"116beceb69e1777d6d06bd6e000001808cc8da5300000403004830460221009b0741fa71b356565b7c09b08abe41564c" +
		"6ca573c668712055f273efdcaac129022100b4197c1b2784c9d855f076ac3ee34bd62a987fdc7078ad526a2984af23cf" +
		"015600760035cf191bbfb16c57bf0fad4c6d42cbbbb627202651ea3fe12aefa803c33bd64c000001808cc8da93000004" +
		"030047304502210090c8237b2ca6e327ef8d585a991476524bef28e99452059d0e6e2b6af71d857d02202bd51fc036b5" +
		"40abd21ff23a442877478999c65c511623c27dd03db4837f1eae007600b3737707e18450f86386d605a9dc11094a792d" +
		"b1670c0b87dcf0030e7936a59a000001808cc8dac50000040300473045022044f519af5bfb54ecabf97eddd5d28a7034" +
		"dd451107f47f4a2f63182669f1f382022100da82bc32be8a7134d910e1df1daab36b40b3277d58e9c2560af1987c6aae" +
		"a5f3300a06082a8648ce3d0403020349003046022100bf17d1d2fa070550387566530aa72a29129207ba70a1de8e900f" +
		"d66436845b69022100ba664be1769864466d3da281101bc40d3bb7ed405b2b37f0aa62da842ae4da0c"

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

